package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowbook/appointments/internal/domain"
)

// Runs against a throwaway schema in the database named by
// GLOWBOOK_TEST_DATABASE_URL; skipped otherwise.
func TestPostgresIntegration_CommitConflicts(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("GLOWBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("GLOWBOOK_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	schema := "glowbook_test_" + randomHex(t, 8)

	admin, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.Exec(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		_ = admin.Close(ctx)
	})

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	slotRepo := NewReservationRepo(pool, domain.PolicySlotUniqueness, 0)
	if err := slotRepo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	t.Run("slot mutual exclusion", func(t *testing.T) {
		const n = 8
		var wg sync.WaitGroup
		results := make([]error, n)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = slotRepo.Commit(ctx, &domain.BookingRequest{
					Name:     "Client",
					Email:    fmt.Sprintf("slot%d@example.com", i),
					Date:     "2025-06-01",
					TimeSlot: "10:00",
				})
			}(i)
		}
		wg.Wait()

		committed, conflicts := 0, 0
		for _, err := range results {
			switch {
			case err == nil:
				committed++
			case errors.Is(err, domain.ErrSlotTaken):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if committed != 1 || conflicts != n-1 {
			t.Fatalf("got %d committed, %d conflicts; want 1 and %d", committed, conflicts, n-1)
		}
	})

	t.Run("per-person uniqueness", func(t *testing.T) {
		first := &domain.BookingRequest{
			Name: "Client", Email: "person@example.com", Date: "2025-06-02", TimeSlot: "09:00",
		}
		if _, err := slotRepo.Commit(ctx, first); err != nil {
			t.Fatalf("first commit: %v", err)
		}

		second := &domain.BookingRequest{
			Name: "Client", Email: "Person@Example.com", Date: "2025-06-02", TimeSlot: "11:00",
		}
		if _, err := slotRepo.Commit(ctx, second); !errors.Is(err, domain.ErrAlreadyBookedThisDay) {
			t.Fatalf("second commit: got %v, want ErrAlreadyBookedThisDay", err)
		}
	})

	t.Run("capacity boundary", func(t *testing.T) {
		capRepo := NewReservationRepo(pool, domain.PolicyDailyCapacity, 3)

		const n = 6
		var wg sync.WaitGroup
		results := make([]error, n)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = capRepo.Commit(ctx, &domain.BookingRequest{
					Name:           "Client",
					Email:          fmt.Sprintf("cap%d@example.com", i),
					Date:           "2025-07-01",
					TimePreference: "morning",
				})
			}(i)
		}
		wg.Wait()

		committed, full := 0, 0
		for _, err := range results {
			switch {
			case err == nil:
				committed++
			case errors.Is(err, domain.ErrCapacityReached):
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if committed != 3 || full != n-3 {
			t.Fatalf("got %d committed, %d capacity conflicts; want 3 and %d", committed, full, n-3)
		}
	})

	t.Run("list by date", func(t *testing.T) {
		rows, err := slotRepo.List(ctx, "2025-06-01", 20, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}
		if rows[0].Date != "2025-06-01" || rows[0].TimeSlot != "10:00" {
			t.Fatalf("row = %+v", rows[0])
		}
	})
}

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b)
}
