package domain

import (
	"errors"
	"fmt"
)

// Conflict reasons returned by the reservation store. Each one is a terminal
// outcome for the attempt, never retried by the core.
var (
	ErrSlotTaken            = errors.New("time slot is already taken")
	ErrAlreadyBookedThisDay = errors.New("email already has an appointment on that day")
	ErrCapacityReached      = errors.New("maximum number of appointments reached for that day")
)

// ErrLinkInvalidOrExpired covers both tampered and outdated verification
// tokens; callers cannot distinguish the two on purpose.
var ErrLinkInvalidOrExpired = errors.New("verification link is invalid or expired")

func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) ||
		errors.Is(err, ErrAlreadyBookedThisDay) ||
		errors.Is(err, ErrCapacityReached)
}

// ValidationError reports a missing or malformed input field. No token is
// issued and the store is never touched when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
