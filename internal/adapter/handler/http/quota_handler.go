package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// QuotaReader reports a fingerprint's free-tier allowance.
type QuotaReader interface {
	Status(ctx context.Context, fingerprint string) (*model.QuotaStatus, error)
}

type QuotaHandler struct {
	logger *zap.Logger
	quota  QuotaReader
}

func NewQuotaHandler(logger *zap.Logger, quota QuotaReader) *QuotaHandler {
	return &QuotaHandler{logger: logger, quota: quota}
}

// GetQuota handles GET /api/v1/quota?fingerprint=
func (h *QuotaHandler) GetQuota(c echo.Context) error {
	status, err := h.quota.Status(c.Request().Context(), c.QueryParam("fingerprint"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}
