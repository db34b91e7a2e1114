package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/repo"
)

type ReservationRepoImpl struct {
	pool     *pgxpool.Pool
	policy   domain.ConflictPolicy
	capacity int
}

func NewReservationRepo(pool *pgxpool.Pool, policy domain.ConflictPolicy, capacity int) *ReservationRepoImpl {
	return &ReservationRepoImpl{pool: pool, policy: policy, capacity: capacity}
}

// EnsureSchema creates the appointments table and its backstop constraints.
// The unique indexes catch conflicting inserts even if the advisory lock in
// Commit were ever bypassed.
func (r *ReservationRepoImpl) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS appointments (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    date DATE NOT NULL,
    time_slot TEXT NOT NULL DEFAULT '',
    time_preference TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    instagram TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_email_date_key
    ON appointments (lower(email), date)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_slot_key
    ON appointments (date, time_slot) WHERE time_slot <> ''`,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the conflict checks
// can run unsynchronized for Precheck and inside the transaction for Commit.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ReservationRepoImpl) Precheck(ctx context.Context, email, date, timeSlot string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.checkConflicts(ctx, r.pool, email, date, timeSlot)
}

func (r *ReservationRepoImpl) Commit(ctx context.Context, req *domain.BookingRequest) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serialize all commits touching the same calendar date, so the conflict
	// checks and the insert below are atomic with respect to each other.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.Date); err != nil {
		return nil, err
	}

	if err := r.checkConflicts(ctx, tx, req.Email, req.Date, req.TimeSlot); err != nil {
		return nil, err
	}

	appt := domain.Appointment{
		Name:           req.Name,
		Email:          req.Email,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		TimePreference: req.TimePreference,
		Phone:          req.Phone,
		Instagram:      req.Instagram,
	}
	err = tx.QueryRow(ctx, `INSERT INTO appointments
    (name, email, date, time_slot, time_preference, phone, instagram)
  VALUES ($1, $2, $3::date, $4, $5, $6, $7)
  RETURNING id, created_at`,
		req.Name, req.Email, req.Date, req.TimeSlot,
		req.TimePreference, req.Phone, req.Instagram,
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return nil, mapConstraintErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *ReservationRepoImpl) checkConflicts(ctx context.Context, q querier, email, date, timeSlot string) error {
	var booked bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE lower(email) = lower($1) AND date = $2::date)`,
		email, date,
	).Scan(&booked)
	if err != nil {
		return err
	}
	if booked {
		return domain.ErrAlreadyBookedThisDay
	}

	switch r.policy {
	case domain.PolicySlotUniqueness:
		if timeSlot == "" {
			return nil
		}
		var taken bool
		err := q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM appointments WHERE date = $1::date AND time_slot = $2)`,
			date, timeSlot,
		).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrSlotTaken
		}
	case domain.PolicyDailyCapacity:
		var count int
		err := q.QueryRow(ctx,
			`SELECT COUNT(*) FROM appointments WHERE date = $1::date`,
			date,
		).Scan(&count)
		if err != nil {
			return err
		}
		if count >= r.capacity {
			return domain.ErrCapacityReached
		}
	}
	return nil
}

// mapConstraintErr translates a unique violation from the backstop indexes
// back into the conflict it guards against.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "appointments_email_date_key":
			return domain.ErrAlreadyBookedThisDay
		case "appointments_slot_key":
			return domain.ErrSlotTaken
		}
	}
	return err
}

const apptCols = `id, name, email, date, time_slot, time_preference, phone, instagram, created_at`

func (r *ReservationRepoImpl) List(ctx context.Context, date string, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + apptCols + ` FROM appointments ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args := []any{limit, offset}
	if date != "" {
		q = `SELECT ` + apptCols + ` FROM appointments WHERE date = $1::date
  ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = []any{date, limit, offset}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	as := make([]domain.Appointment, 0, limit)
	for rows.Next() {
		var a domain.Appointment
		var day time.Time
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Email, &day,
			&a.TimeSlot, &a.TimePreference, &a.Phone, &a.Instagram,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Date = day.Format(domain.DateLayout)
		as = append(as, a)
	}
	return as, rows.Err()
}

var _ repo.ReservationStore = (*ReservationRepoImpl)(nil)
