package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(60, time.Minute, 2)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	// other keys have their own bucket
	d, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, d.Allowed)

	// one token refills per second
	now = now.Add(time.Second)
	d, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(10, time.Minute, 1, WithIdleTTL(time.Minute))
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "a")
	now = now.Add(30 * time.Second)
	_, _ = limiter.Allow(context.Background(), "b")
	now = now.Add(45 * time.Second)

	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Len())
}

func TestRedisLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "rl", 2, time.Minute)
	now := time.Unix(1_800_000_030, 0)
	limiter.now = func() time.Time { return now }

	key, remaining := limiter.windowKey("1.2.3.4", now)
	assert.Equal(t, 30*time.Second, remaining)

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	ctx := context.Background()
	d, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRedisLimiter(db, "", 2, time.Minute)
	now := time.Unix(1_800_000_000, 0)
	limiter.now = func() time.Time { return now }

	key, _ := limiter.windowKey("k", now)
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}

type stubLimiter struct {
	decision Decision
	err      error
}

func (s stubLimiter) Allow(context.Context, string) (Decision, error) {
	return s.decision, s.err
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(l Limiter) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := Middleware(l, nil, zap.NewNop(), metrics.NewNop())(ok)(c)
		return rec, err
	}

	t.Run("allowed", func(t *testing.T) {
		rec, err := run(stubLimiter{decision: Decision{Allowed: true}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		rec, err := run(stubLimiter{decision: Decision{RetryAfter: 1500 * time.Millisecond}})
		var appErr *pkgerrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, pkgerrors.ErrRateLimited, appErr.Code())
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		rec, err := run(stubLimiter{err: errors.New("redis down")})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
