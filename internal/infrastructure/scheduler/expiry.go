package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// CreditExpirer zeroes expired credit batches.
type CreditExpirer interface {
	ExpireCredits(ctx context.Context) (*model.ExpireResult, error)
}

// ExpiryScheduler runs the credit expiry sweep on a fixed interval.
type ExpiryScheduler struct {
	expirer  CreditExpirer
	interval time.Duration
	logger   *zap.Logger
}

// NewExpiryScheduler creates a new expiry scheduler
func NewExpiryScheduler(expirer CreditExpirer, interval time.Duration, logger *zap.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) {
	s.logger.Info("Credit expiry scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Credit expiry scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpiryScheduler) sweep(ctx context.Context) {
	started := time.Now()
	result, err := s.expirer.ExpireCredits(ctx)
	if err != nil {
		s.logger.Error("Credit expiry sweep failed", zap.Error(err))
	}
	// accounts commit independently, so a failed sweep can still have expired some
	if result != nil && result.BatchesExpired > 0 {
		s.logger.Info("Expired credits",
			zap.Int("accounts", result.AccountsAffected),
			zap.Int("batches", result.BatchesExpired),
			zap.Int("credits", result.TotalCreditsExpired),
			zap.Duration("elapsed", time.Since(started)))
	}
}
