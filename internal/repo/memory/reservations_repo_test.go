package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/repo/memory"
)

func slotRequest(email, slot string) *domain.BookingRequest {
	return &domain.BookingRequest{
		Name:     "Client",
		Email:    email,
		Date:     "2025-06-01",
		TimeSlot: slot,
	}
}

func capacityRequest(email string) *domain.BookingRequest {
	return &domain.BookingRequest{
		Name:           "Client",
		Email:          email,
		Date:           "2025-06-01",
		TimePreference: "morning",
	}
}

func TestCommitSlotMutualExclusion(t *testing.T) {
	store := memory.NewReservationRepo(domain.PolicySlotUniqueness, 0)

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := slotRequest(fmt.Sprintf("client%d@example.com", i), "10:00")
			_, results[i] = store.Commit(context.Background(), req)
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
}

func TestCommitCapacityBoundary(t *testing.T) {
	store := memory.NewReservationRepo(domain.PolicyDailyCapacity, 3)

	const n = 6
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Commit(context.Background(), capacityRequest(fmt.Sprintf("client%d@example.com", i)))
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
}

func TestCommitPerPersonUniqueness(t *testing.T) {
	store := memory.NewReservationRepo(domain.PolicyDailyCapacity, 3)
	ctx := context.Background()

	if _, err := store.Commit(ctx, capacityRequest("same@example.com")); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	// Different time identity, same email and day; email match is
	// case-insensitive.
	req := capacityRequest("Same@Example.com")
	req.TimePreference = "afternoon"
	if _, err := store.Commit(ctx, req); !errors.Is(err, domain.ErrAlreadyBookedThisDay) {
		t.Fatalf("second commit: got %v, want ErrAlreadyBookedThisDay", err)
	}
}

func TestPrecheckIsAdvisory(t *testing.T) {
	store := memory.NewReservationRepo(domain.PolicySlotUniqueness, 0)
	ctx := context.Background()

	if err := store.Precheck(ctx, "a@example.com", "2025-06-01", "10:00"); err != nil {
		t.Fatalf("precheck on empty store: %v", err)
	}

	if _, err := store.Commit(ctx, slotRequest("b@example.com", "10:00")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := store.Precheck(ctx, "a@example.com", "2025-06-01", "10:00"); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("precheck after commit: got %v, want ErrSlotTaken", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := memory.NewReservationRepo(domain.PolicySlotUniqueness, 0)
	ctx := context.Background()

	first, err := store.Commit(ctx, slotRequest("a@example.com", "10:00"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	second, err := store.Commit(ctx, slotRequest("b@example.com", "11:00"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	other := slotRequest("c@example.com", "10:00")
	other.Date = "2025-06-02"
	if _, err := store.Commit(ctx, other); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := store.List(ctx, "2025-06-01", 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d appointments, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("want newest first, got ids %d, %d", got[0].ID, got[1].ID)
	}

	paged, err := store.List(ctx, "", 1, 1)
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != second.ID {
		t.Fatalf("paged list: got %+v", paged)
	}
}
