package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSimulationNotFound indicates the simulation definition could not be loaded.
	ErrSimulationNotFound = errors.New("simulation not found")
	// ErrAttemptNotFound is returned when an attempt id does not resolve to a record.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptClosed is returned when a submission targets an attempt that was already scored.
	ErrAttemptClosed = errors.New("attempt already closed")
	// ErrDeadlineExceeded is returned when deadline enforcement is on and the submission
	// arrives past the simulation duration plus the configured grace window.
	ErrDeadlineExceeded = errors.New("attempt deadline exceeded")
	// ErrValidation marks malformed requests rejected before any scoring work.
	ErrValidation = errors.New("validation failed")
)

// ConflictError signals that an open attempt already exists for the
// (user, simulation) pair. It carries the open attempt's id so callers can
// resume it instead of retrying blindly.
type ConflictError struct {
	AttemptID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("attempt already in progress: %s", e.AttemptID)
}
