package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/restoration-backend/internal/adapter/handler/http"
	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/ratelimit"
)

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Service.Name = "restore"
	cfg.Service.ClientURL = "https://restore.example"
	cfg.JWT.Secret = "secret"

	log := zap.NewNop()
	h := Handlers{
		Webhook:     handlers.NewWebhookHandler(log, nil, nil),
		Checkout:    handlers.NewCheckoutHandler(log, nil),
		Restoration: handlers.NewRestorationHandler(log, nil, 0),
		Quota:       handlers.NewQuotaHandler(log, nil),
		Credit:      handlers.NewCreditHandler(log, nil),
	}
	return NewServer(cfg, log, h, limiter, metrics.NewNop())
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"restore"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.metrics.QuotaDecision("allowed")

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "restore_quota_decisions_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_code":"NOT_FOUND"`)
	assert.Contains(t, rec.Body.String(), `"request_id":"`)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/restorations/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	rec := do(s, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}

func TestRateLimitedRoutes(t *testing.T) {
	s := newTestServer(t, ratelimit.NewMemoryLimiter(1, time.Minute, 1))

	first := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/restorations/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/restorations/not-a-uuid", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// health is outside the limited group
	assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	s := newTestServer(t, nil)
	s.AddHealthCheck("database", func(context.Context) error { return nil })
	s.AddHealthCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","service":"restore","dependencies":{"database":"ok","redis":"unavailable"}}`,
		rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "refused")
}
