// Package memory holds an in-process reservation store. A single mutex around
// the check-and-insert gives the same commit atomicity the postgres store gets
// from its per-date transaction lock. Used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/repo"
)

type ReservationRepoImpl struct {
	mu       sync.Mutex
	nextID   int64
	rows     []domain.Appointment
	policy   domain.ConflictPolicy
	capacity int
}

func NewReservationRepo(policy domain.ConflictPolicy, capacity int) *ReservationRepoImpl {
	return &ReservationRepoImpl{nextID: 1, policy: policy, capacity: capacity}
}

func (r *ReservationRepoImpl) Precheck(_ context.Context, email, date, timeSlot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkConflicts(email, date, timeSlot)
}

func (r *ReservationRepoImpl) Commit(_ context.Context, req *domain.BookingRequest) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkConflicts(req.Email, req.Date, req.TimeSlot); err != nil {
		return nil, err
	}

	appt := domain.Appointment{
		ID:             r.nextID,
		Name:           req.Name,
		Email:          req.Email,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		TimePreference: req.TimePreference,
		Phone:          req.Phone,
		Instagram:      req.Instagram,
		CreatedAt:      time.Now(),
	}
	r.nextID++
	r.rows = append(r.rows, appt)
	return &appt, nil
}

// checkConflicts must run under r.mu.
func (r *ReservationRepoImpl) checkConflicts(email, date, timeSlot string) error {
	count := 0
	for i := range r.rows {
		row := &r.rows[i]
		if row.Date != date {
			continue
		}
		if strings.EqualFold(row.Email, email) {
			return domain.ErrAlreadyBookedThisDay
		}
		if r.policy == domain.PolicySlotUniqueness && timeSlot != "" && row.TimeSlot == timeSlot {
			return domain.ErrSlotTaken
		}
		count++
	}
	if r.policy == domain.PolicyDailyCapacity && count >= r.capacity {
		return domain.ErrCapacityReached
	}
	return nil
}

func (r *ReservationRepoImpl) List(_ context.Context, date string, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Appointment, 0, len(r.rows))
	for _, row := range r.rows {
		if date == "" || row.Date == date {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if offset >= len(matched) {
		return []domain.Appointment{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

var _ repo.ReservationStore = (*ReservationRepoImpl)(nil)
