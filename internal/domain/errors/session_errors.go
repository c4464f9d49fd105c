package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no restoration session matches the id.
	ErrSessionNotFound = errors.New("restoration session not found")
	// ErrSessionConflict is returned when a conditional status update matched no row.
	ErrSessionConflict = errors.New("restoration session was modified concurrently")
)

// InvalidTransitionError is returned when a session cannot move between two states.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid restoration session transition: %s -> %s", e.From, e.To)
}

// NewInvalidTransitionError creates a new InvalidTransitionError
func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}
