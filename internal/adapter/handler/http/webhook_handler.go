package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
)

// maxWebhookBody is the largest event payload accepted.
const maxWebhookBody = 1 << 20

// EventIngester records and dispatches verified gateway events.
type EventIngester interface {
	Ingest(ctx context.Context, eventID, eventType string, payload json.RawMessage) (*usecase.IngestResult, error)
}

type WebhookHandler struct {
	logger   *zap.Logger
	gateway  provider.PaymentGateway
	ingester EventIngester
}

func NewWebhookHandler(logger *zap.Logger, gateway provider.PaymentGateway, ingester EventIngester) *WebhookHandler {
	return &WebhookHandler{
		logger:   logger,
		gateway:  gateway,
		ingester: ingester,
	}
}

type webhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// HandleWebhook handles POST /webhook
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "error reading request body")
	}
	if len(body) > maxWebhookBody {
		h.logger.Warn("Webhook payload too large",
			zap.String("request_id", logger.RequestID(c)))
		return pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "webhook payload exceeds 1MB")
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return pkgerrors.Validation(pkgerrors.ErrMissingSignature, "missing Stripe-Signature header")
	}

	event, err := h.gateway.VerifyWebhook(body, sig)
	if err != nil {
		h.logger.Warn("Webhook signature verification failed",
			zap.String("request_id", logger.RequestID(c)),
			zap.Error(err))
		return pkgerrors.Validation(pkgerrors.ErrInvalidSignature, "webhook signature verification failed")
	}

	h.logger.Info("Webhook event received",
		zap.String("type", event.EventType),
		zap.String("id", event.EventID),
		zap.Time("created", event.CreatedAt))

	result, err := h.ingester.Ingest(c.Request().Context(), event.EventID, event.EventType, event.Payload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, webhookResponse{Received: true, Duplicate: result.Duplicate})
}
