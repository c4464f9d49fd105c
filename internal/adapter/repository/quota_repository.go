package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
)

const (
	remainingQuotaSQL = `SELECT GREATEST(? - COALESCE((SELECT restore_count FROM quota_records WHERE fingerprint = ?), 0), 0) AS remaining`

	// The insert branch only fires for an unseen fingerprint with a positive
	// limit; the update branch only claims a free, unexhausted slot.
	reserveQuotaSQL = `INSERT INTO quota_records (fingerprint, restore_count, reserved_at, created_at, updated_at)
SELECT ?, 0, ?, ?, ? WHERE ? > 0
ON CONFLICT (fingerprint) DO UPDATE
SET reserved_at = EXCLUDED.reserved_at, updated_at = EXCLUDED.updated_at
WHERE quota_records.restore_count < ?
AND (quota_records.reserved_at IS NULL OR quota_records.reserved_at < ?)`

	incrementQuotaSQL = `INSERT INTO quota_records (fingerprint, restore_count, last_restore_at, reserved_at, created_at, updated_at)
VALUES (?, 1, ?, NULL, ?, ?)
ON CONFLICT (fingerprint) DO UPDATE
SET restore_count = quota_records.restore_count + 1,
last_restore_at = EXCLUDED.last_restore_at,
reserved_at = NULL,
updated_at = EXCLUDED.updated_at`

	releaseQuotaSQL = `UPDATE quota_records SET reserved_at = NULL, updated_at = ? WHERE fingerprint = ?`
)

type remainingRow struct {
	Remaining *int
}

type quotaRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *gorm.DB, logger *zap.Logger) domainRepo.QuotaRepository {
	return &quotaRepository{
		db:     db,
		logger: logger,
	}
}

// Remaining computes the free restores left in a single statement
func (r *quotaRepository) Remaining(ctx context.Context, fingerprint string, limit int) (int, error) {
	var rows []remainingRow
	if err := r.db.WithContext(ctx).Raw(remainingQuotaSQL, limit, fingerprint).Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to compute remaining quota: %w", err)
	}
	if len(rows) != 1 || rows[0].Remaining == nil {
		return 0, fmt.Errorf("remaining quota query returned %d rows", len(rows))
	}
	return *rows[0].Remaining, nil
}

// Reserve claims the free restore slot in one conditional upsert
func (r *quotaRepository) Reserve(ctx context.Context, fingerprint string, limit int, now time.Time, staleAfter time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).Exec(reserveQuotaSQL,
		fingerprint, now, now, now, limit,
		limit, now.Add(-staleAfter))
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve quota: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Increment counts a successful free restore
func (r *quotaRepository) Increment(ctx context.Context, fingerprint string, now time.Time) error {
	if err := r.db.WithContext(ctx).Exec(incrementQuotaSQL, fingerprint, now, now, now).Error; err != nil {
		return fmt.Errorf("failed to increment quota: %w", err)
	}
	return nil
}

// Release frees a reservation without counting a restore
func (r *quotaRepository) Release(ctx context.Context, fingerprint string) error {
	if err := r.db.WithContext(ctx).Exec(releaseQuotaSQL, time.Now(), fingerprint).Error; err != nil {
		return fmt.Errorf("failed to release quota reservation: %w", err)
	}
	return nil
}
