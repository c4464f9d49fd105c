package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireCredits(ctx context.Context) (*model.ExpireResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &model.ExpireResult{AccountsAffected: 1, BatchesExpired: 1, TotalCreditsExpired: 3}, nil
}

func TestExpiryScheduler_Run(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewExpiryScheduler(expirer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestExpiryScheduler_KeepsRunningAfterFailure(t *testing.T) {
	expirer := &countingExpirer{err: errors.New("database is down")}
	s := NewExpiryScheduler(expirer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
