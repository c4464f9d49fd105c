package ratelimit

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// KeyFunc extracts the client key from a request.
type KeyFunc func(c echo.Context) string

// RealIPKey keys requests by client address.
func RealIPKey(c echo.Context) string {
	return c.RealIP()
}

// Middleware rejects requests over the limit with 429 RATE_LIMITED.
// Limiter errors let the request through.
func Middleware(limiter Limiter, keyFn KeyFunc, logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	if keyFn == nil {
		keyFn = RealIPKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			decision, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.String("key", key),
					zap.Error(err))
				return next(c)
			}
			if !decision.Allowed {
				m.RateLimited(c.Path())
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return pkgerrors.NewAppError(pkgerrors.KindRateLimited, pkgerrors.ErrRateLimited, "too many requests", nil)
			}
			return next(c)
		}
	}
}
