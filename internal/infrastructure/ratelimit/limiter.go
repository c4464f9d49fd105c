// Package ratelimit throttles the public endpoints per client key.
//
// The memory backend keeps one token bucket per key in process. The redis
// backend counts requests in fixed windows shared by every instance.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome for one request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
