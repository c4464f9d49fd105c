package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	"github.com/wekeepgrowing/restoration-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
)

// DefaultMaxImageBytes caps uploaded originals.
const DefaultMaxImageBytes = 20 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Restorer runs and looks up restoration sessions.
type Restorer interface {
	Restore(ctx context.Context, req *usecase.RestorationRequest) (*model.RestorationSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*model.RestorationSession, error)
}

type RestorationHandler struct {
	logger   *zap.Logger
	restorer Restorer
	maxBytes int64
}

func NewRestorationHandler(logger *zap.Logger, restorer Restorer, maxBytes int64) *RestorationHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &RestorationHandler{
		logger:   logger,
		restorer: restorer,
		maxBytes: maxBytes,
	}
}

// SessionResponse is the client view of a restoration session.
type SessionResponse struct {
	SessionID   string     `json:"session_id"`
	Status      string     `json:"status"`
	Funding     string     `json:"funding,omitempty"`
	ResultURL   string     `json:"result_url,omitempty"`
	PreviewURLs []string   `json:"preview_urls"`
	RetryCount  int        `json:"retry_count"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newSessionResponse(s *model.RestorationSession) SessionResponse {
	resp := SessionResponse{
		SessionID:   s.ID.String(),
		Status:      string(s.Status),
		Funding:     string(s.FundingSource),
		PreviewURLs: []string(s.PreviewURLs),
		RetryCount:  s.RetryCount,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
	if resp.PreviewURLs == nil {
		resp.PreviewURLs = []string{}
	}
	if s.ResultURL != nil {
		resp.ResultURL = *s.ResultURL
	}
	if s.LastError != nil && s.Status == model.SessionStatusFailed {
		resp.Error = *s.LastError
	}
	return resp
}

// CreateRestoration handles POST /api/v1/restorations
func (h *RestorationHandler) CreateRestoration(c echo.Context) error {
	req := &usecase.RestorationRequest{
		Fingerprint: c.FormValue("fingerprint"),
	}
	if user := auth.GetUserFromContext(c); user != nil {
		req.UserID = user.UserID
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file is required")
	}
	if fileHeader.Size <= 0 {
		return pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file is empty")
	}
	if fileHeader.Size > h.maxBytes {
		return pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file is too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file could not be read")
	}
	defer file.Close()

	contentType, err := sniffImage(file)
	if err != nil {
		return err
	}

	req.Filename = fileHeader.Filename
	req.ContentType = contentType
	req.Size = fileHeader.Size
	req.Body = file

	session, err := h.restorer.Restore(c.Request().Context(), req)
	if err != nil {
		if session != nil {
			h.logger.Info("Restoration request ended without result",
				zap.String("request_id", logger.RequestID(c)),
				zap.String("session_id", session.ID.String()),
				zap.String("status", string(session.Status)))
		}
		return err
	}

	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// GetRestoration handles GET /api/v1/restorations/:id
func (h *RestorationHandler) GetRestoration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "invalid session id")
	}

	session, err := h.restorer.GetSession(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// sniffImage detects the upload's type from its leading bytes and rewinds it.
func sniffImage(file io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file could not be read")
	}
	contentType := http.DetectContentType(head[:n])
	if !allowedImageTypes[contentType] {
		return "", pkgerrors.Validation(pkgerrors.ErrInvalidFile, "unsupported image type "+contentType)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file could not be read")
	}
	return contentType, nil
}
