package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// MinFingerprintLength is the shortest fingerprint accepted from clients.
const MinFingerprintLength = 20

// QuotaTracker enforces the lifetime free-tier allowance of anonymous fingerprints.
// Every path that cannot produce a definite answer denies.
type QuotaTracker struct {
	repo           domainRepo.QuotaRepository
	limit          int
	upgradeURL     string
	reservationTTL time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewQuotaTracker creates a quota tracker. Reservations older than
// reservationTTL are considered abandoned and can be claimed again.
func NewQuotaTracker(repo domainRepo.QuotaRepository, limit int, upgradeURL string, reservationTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *QuotaTracker {
	return &QuotaTracker{
		repo:           repo,
		limit:          limit,
		upgradeURL:     upgradeURL,
		reservationTTL: reservationTTL,
		logger:         logger,
		metrics:        m,
		now:            time.Now,
	}
}

func validateFingerprint(fingerprint string) error {
	if fingerprint == "" {
		return pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required")
	}
	if len(fingerprint) < MinFingerprintLength {
		return pkgerrors.Validation(pkgerrors.ErrInvalidFingerprint, "fingerprint is too short")
	}
	return nil
}

func quotaCheckFailed(err error) error {
	return pkgerrors.Internal(pkgerrors.ErrQuotaCheckFailed, "unable to verify free-tier quota", err)
}

// CheckQuota reports whether the fingerprint has a free restore left
func (q *QuotaTracker) CheckQuota(ctx context.Context, fingerprint string) (bool, error) {
	if err := validateFingerprint(fingerprint); err != nil {
		return false, err
	}

	remaining, err := q.repo.Remaining(ctx, fingerprint, q.limit)
	if err != nil {
		q.metrics.QuotaDecision("error")
		q.logger.Error("Quota check failed, denying",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		return false, quotaCheckFailed(err)
	}

	allowed := remaining > 0
	if allowed {
		q.metrics.QuotaDecision("allowed")
	} else {
		q.metrics.QuotaDecision("denied")
	}
	return allowed, nil
}

// ReserveQuota atomically claims the fingerprint's free restore.
// False means the allowance is used up or another restore holds it.
func (q *QuotaTracker) ReserveQuota(ctx context.Context, fingerprint string) (bool, error) {
	if err := validateFingerprint(fingerprint); err != nil {
		return false, err
	}

	reserved, err := q.repo.Reserve(ctx, fingerprint, q.limit, q.now(), q.reservationTTL)
	if err != nil {
		q.metrics.QuotaDecision("error")
		q.logger.Error("Quota reservation failed, denying",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		return false, quotaCheckFailed(err)
	}

	if reserved {
		q.metrics.QuotaDecision("reserved")
	} else {
		q.metrics.QuotaDecision("denied")
	}
	return reserved, nil
}

// IncrementQuota counts a successful free restore
func (q *QuotaTracker) IncrementQuota(ctx context.Context, fingerprint string) error {
	if err := q.repo.Increment(ctx, fingerprint, q.now()); err != nil {
		q.logger.Error("Failed to increment quota",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		return err
	}
	return nil
}

// ReleaseQuota gives back a reservation after a failed restore
func (q *QuotaTracker) ReleaseQuota(ctx context.Context, fingerprint string) error {
	if err := q.repo.Release(ctx, fingerprint); err != nil {
		return fmt.Errorf("failed to release quota reservation: %w", err)
	}
	return nil
}

// Status returns the fingerprint's allowance for the quota endpoint
func (q *QuotaTracker) Status(ctx context.Context, fingerprint string) (*model.QuotaStatus, error) {
	if err := validateFingerprint(fingerprint); err != nil {
		return nil, err
	}

	remaining, err := q.repo.Remaining(ctx, fingerprint, q.limit)
	if err != nil {
		q.logger.Error("Quota status lookup failed",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		return nil, quotaCheckFailed(err)
	}

	status := &model.QuotaStatus{
		Remaining:       remaining,
		Limit:           q.limit,
		RequiresUpgrade: remaining == 0,
	}
	if status.RequiresUpgrade {
		status.UpgradeURL = q.upgradeURL
	}
	return status, nil
}
