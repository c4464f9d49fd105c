package repository

import (
	"context"
	"time"
)

// QuotaRepository tracks free-tier restores per fingerprint.
type QuotaRepository interface {
	// Remaining returns max(limit - restore_count, 0), or limit for an unknown fingerprint.
	Remaining(ctx context.Context, fingerprint string, limit int) (int, error)

	// Reserve claims the free restore for fingerprint if one is left and no
	// other unexpired reservation holds it. Reservations older than staleAfter are reclaimed.
	Reserve(ctx context.Context, fingerprint string, limit int, now time.Time, staleAfter time.Duration) (bool, error)

	// Increment records a successful free restore and clears the reservation.
	Increment(ctx context.Context, fingerprint string, now time.Time) error

	// Release clears the reservation without counting a restore.
	Release(ctx context.Context, fingerprint string) error
}
