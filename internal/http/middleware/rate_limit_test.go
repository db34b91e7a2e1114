package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	mw "github.com/glowbook/appointments/internal/http/middleware"
)

func newLimitedHandler(t *testing.T, requests int, window time.Duration) (*miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := mw.NewRateLimiter(client, mw.RateLimitConfig{
		Requests: requests,
		Window:   window,
		KeyFunc:  mw.BookingRateLimitKeyFunc,
	})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	return mr, limiter.Middleware()(ok)
}

func doLimitedRequest(handler http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = ip + ":52110"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	_, handler := newLimitedHandler(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusAccepted {
			t.Fatalf("request %d: got status %d, want %d", i+1, got, http.StatusAccepted)
		}
	}
	if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusTooManyRequests {
		t.Fatalf("over-limit request: got status %d, want %d", got, http.StatusTooManyRequests)
	}

	// Other clients are unaffected.
	if got := doLimitedRequest(handler, "192.0.2.2"); got != http.StatusAccepted {
		t.Fatalf("other client: got status %d, want %d", got, http.StatusAccepted)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	mr, handler := newLimitedHandler(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusAccepted {
			t.Fatalf("request %d: got status %d, want %d", i+1, got, http.StatusAccepted)
		}
	}

	// A blocked client keeps retrying; the retries must not push the
	// window out.
	for i := 0; i < 3; i++ {
		if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusTooManyRequests {
			t.Fatalf("blocked retry %d: got status %d, want %d", i+1, got, http.StatusTooManyRequests)
		}
	}

	mr.FastForward(time.Minute + time.Second)

	if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusAccepted {
		t.Fatalf("after window elapsed: got status %d, want %d", got, http.StatusAccepted)
	}
}

func TestRateLimiterSteadyClientNeverStarved(t *testing.T) {
	// One request every 40s against a 2-per-minute limit stays well under
	// the limit and must always be let through.
	mr, handler := newLimitedHandler(t, 2, time.Minute)

	for i := 0; i < 6; i++ {
		if got := doLimitedRequest(handler, "192.0.2.1"); got != http.StatusAccepted {
			t.Fatalf("request %d: got status %d, want %d", i+1, got, http.StatusAccepted)
		}
		mr.FastForward(40 * time.Second)
	}
}
