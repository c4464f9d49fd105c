package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionNotFound is returned when a refund references an unknown payment.
	ErrTransactionNotFound = errors.New("payment transaction not found")
	// ErrInvalidCreditAmount is returned for non-positive credit grants.
	ErrInvalidCreditAmount = errors.New("credit amount must be positive")
	// ErrMissingAccount is returned when a gateway event carries no account reference.
	ErrMissingAccount = errors.New("event has no account reference")
)

// BalanceMismatchError reports a cached balance that drifted from its batches.
type BalanceMismatchError struct {
	Account    string
	Cached     int
	Recomputed int
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("credit balance mismatch for %s: cached %d, recomputed %d", e.Account, e.Cached, e.Recomputed)
}
