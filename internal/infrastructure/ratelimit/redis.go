package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter counts requests per key in fixed windows.
type RedisLimiter struct {
	rdb      redis.UniversalClient
	prefix   string
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewRedisLimiter allows requests per window for each key.
func NewRedisLimiter(rdb redis.UniversalClient, prefix string, requests int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		rdb:      rdb,
		prefix:   strings.Trim(prefix, ":"),
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

func (r *RedisLimiter) windowKey(key string, now time.Time) (string, time.Duration) {
	idx := now.UnixNano() / int64(r.window)
	end := time.Unix(0, (idx+1)*int64(r.window))
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, idx), end.Sub(now)
}

// Allow increments the key's counter for the current window. The window
// index is part of the key, so the expiry only reclaims memory.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	redisKey, remaining := r.windowKey(key, now)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expiry: %w", err)
		}
	}

	if count > int64(r.requests) {
		return Decision{Allowed: false, RetryAfter: remaining}, nil
	}
	return Decision{Allowed: true}, nil
}
