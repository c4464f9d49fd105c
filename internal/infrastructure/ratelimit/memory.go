package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter is a token bucket per key with periodic cleanup of idle keys.
type MemoryLimiter struct {
	mu           sync.Mutex
	entries      map[string]*memoryEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *MemoryLimiter) { m.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(m *MemoryLimiter) { m.cleanupEvery = d }
}

// NewMemoryLimiter allows requests per window with the given burst.
func NewMemoryLimiter(requests int, window time.Duration, burst int, opts ...MemoryOption) *MemoryLimiter {
	if burst <= 0 {
		burst = requests
	}
	m := &MemoryLimiter{
		entries:      make(map[string]*memoryEntry),
		limit:        rate.Limit(float64(requests) / window.Seconds()),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow takes a token for key if one is available.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	lim := m.get(key, now)

	if lim.AllowN(now, 1) {
		return Decision{Allowed: true}, nil
	}

	retry := time.Second
	if m.limit > 0 {
		retry = time.Duration(float64(time.Second) / float64(m.limit))
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

func (m *MemoryLimiter) get(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ent, ok := m.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(m.limit, m.burst)
	m.entries[key] = &memoryEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops keys idle for longer than the idle TTL.
func (m *MemoryLimiter) Cleanup() {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, ent := range m.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartJanitor cleans idle keys periodically until ctx is cancelled.
func (m *MemoryLimiter) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}
