// Package repo declares the reservation store contract shared by the postgres
// and in-memory implementations.
package repo

import (
	"context"

	"github.com/glowbook/appointments/internal/domain"
)

type ReservationStore interface {
	// Precheck is a read-only, advisory conflict check used for fast feedback
	// before a verification token is issued. It is not binding; Commit
	// re-checks under proper synchronization.
	Precheck(ctx context.Context, email, date, timeSlot string) error

	// Commit atomically re-checks the active conflict invariants and inserts
	// the appointment. Of any set of concurrent commits violating the same
	// invariant, exactly one succeeds; the rest receive the matching conflict
	// error (domain.ErrSlotTaken, domain.ErrAlreadyBookedThisDay or
	// domain.ErrCapacityReached). Any other error is a store failure.
	Commit(ctx context.Context, req *domain.BookingRequest) (*domain.Appointment, error)

	// List returns confirmed appointments, newest first, optionally filtered
	// by date.
	List(ctx context.Context, date string, limit, offset int) ([]domain.Appointment, error)
}
