package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
)

// maxErrorMessageLength bounds the error text stored on failed events.
const maxErrorMessageLength = 2000

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a pending audit row and reports whether it was new
func (r *webhookEventRepository) Insert(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	event := &model.WebhookEvent{
		EventID:   eventID,
		EventType: eventType,
		Payload:   datatypes.JSON(payload),
		Status:    model.WebhookStatusPending,
		CreatedAt: time.Now(),
	}

	// Use ON CONFLICT to handle duplicate events
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// MarkSuccess marks a webhook event as processed
func (r *webhookEventRepository) MarkSuccess(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusSuccess,
			"processed_at": &now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}
	return nil
}

// truncateMessage cuts s to at most limit bytes on a rune boundary.
func truncateMessage(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// MarkFailed stores the handler error on the event row
func (r *webhookEventRepository) MarkFailed(ctx context.Context, eventID string, cause error) error {
	errorMsg := truncateMessage(cause.Error(), maxErrorMessageLength)
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusFailed,
			"error_message": &errorMsg,
			"processed_at":  &now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark webhook as failed: %w", result.Error)
	}
	return nil
}
