package usecase

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// EventHandler runs the side effect of one event type.
type EventHandler func(ctx context.Context, payload json.RawMessage) error

// IngestResult reports what happened to an inbound event.
type IngestResult struct {
	Duplicate bool
	// Handled is false for event types with no registered handler.
	Handled bool
}

// WebhookGuard runs each gateway event's side effect at most once.
// The unique event id on the audit table is the only concurrency guard.
type WebhookGuard struct {
	repo     domainRepo.WebhookEventRepository
	handlers map[string]EventHandler
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewWebhookGuard creates a new idempotency guard
func NewWebhookGuard(repo domainRepo.WebhookEventRepository, logger *zap.Logger, m *metrics.Metrics) *WebhookGuard {
	return &WebhookGuard{
		repo:     repo,
		handlers: make(map[string]EventHandler),
		logger:   logger,
		metrics:  m,
	}
}

// Register binds a handler to an event type. It must be called before serving.
func (g *WebhookGuard) Register(eventType string, handler EventHandler) {
	g.handlers[eventType] = handler
}

// Ingest records the event and, on first sight, runs its handler.
// An event id seen before is a duplicate whatever its earlier outcome,
// so a failed event is not retried by redelivery.
func (g *WebhookGuard) Ingest(ctx context.Context, eventID, eventType string, payload json.RawMessage) (*IngestResult, error) {
	log := g.logger.With(
		zap.String("event_id", eventID),
		zap.String("event_type", eventType))

	if eventID == "" {
		return nil, pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "event id is required")
	}

	inserted, err := g.repo.Insert(ctx, eventID, eventType, payload)
	if err != nil {
		g.metrics.WebhookEvent(eventType, "audit_failed")
		log.Error("Failed to record webhook event, refusing to process", zap.Error(err))
		return nil, pkgerrors.Internal(pkgerrors.ErrAuditLogFailed, "failed to record webhook event", err)
	}
	if !inserted {
		g.metrics.WebhookEvent(eventType, "duplicate")
		log.Info("Duplicate webhook event ignored")
		return &IngestResult{Duplicate: true}, nil
	}

	// once recorded, the event is this delivery's only chance: neither the
	// side effect nor its bookkeeping may be cut short by the caller hanging up
	bookkeeping := context.WithoutCancel(ctx)

	handler, ok := g.handlers[eventType]
	if !ok {
		g.metrics.WebhookEvent(eventType, "ignored")
		log.Info("No handler for webhook event type")
		g.markSuccess(bookkeeping, log, eventID)
		return &IngestResult{}, nil
	}

	if err := handler(bookkeeping, payload); err != nil {
		g.metrics.WebhookEvent(eventType, "failed")
		log.Error("Webhook event handler failed", zap.Error(err))
		if markErr := g.repo.MarkFailed(bookkeeping, eventID, err); markErr != nil {
			log.Error("Failed to mark webhook event as failed", zap.Error(markErr))
		}
		return nil, pkgerrors.Internal(pkgerrors.ErrWebhookProcessingFailed, "failed to process webhook event", err)
	}

	g.metrics.WebhookEvent(eventType, "processed")
	g.markSuccess(bookkeeping, log, eventID)
	return &IngestResult{Handled: true}, nil
}

func (g *WebhookGuard) markSuccess(ctx context.Context, log *zap.Logger, eventID string) {
	if err := g.repo.MarkSuccess(ctx, eventID); err != nil {
		// the side effect is already committed; the audit row stays pending
		log.Error("Failed to mark webhook event as processed", zap.Error(err))
	}
}
