package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
)

type sessionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new restoration session repository
func NewSessionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.RestorationSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create restoration session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.RestorationSession, error) {
	var session model.RestorationSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get restoration session: %w", err)
	}
	return &session, nil
}

// Transition writes the session's lifecycle fields if the stored status is still from
func (r *sessionRepository) Transition(ctx context.Context, session *model.RestorationSession, from model.SessionStatus) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.RestorationSession{}).
		Where("id = ? AND status = ?", session.ID, from).
		Updates(map[string]interface{}{
			"status":       session.Status,
			"retry_count":  session.RetryCount,
			"result_url":   session.ResultURL,
			"last_error":   session.LastError,
			"completed_at": session.CompletedAt,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update restoration session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSessionConflict
	}
	session.UpdatedAt = now
	return nil
}

func (r *sessionRepository) SetFunding(ctx context.Context, session *model.RestorationSession) error {
	err := r.db.WithContext(ctx).
		Model(&model.RestorationSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"funding_source":  session.FundingSource,
			"credit_batch_id": session.CreditBatchID,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record session funding: %w", err)
	}
	return nil
}

func (r *sessionRepository) SetPreviews(ctx context.Context, id uuid.UUID, urls []string) error {
	err := r.db.WithContext(ctx).
		Model(&model.RestorationSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"preview_urls": model.StringList(urls),
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to store preview urls: %w", err)
	}
	return nil
}
