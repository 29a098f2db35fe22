package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request #%d blocked; want allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("request over limit allowed; want blocked")
	}

	// Other clients keep their own window.
	if !rl.Allow("5.6.7.8") {
		t.Fatal("different client blocked; want allowed")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request blocked")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request allowed; want blocked")
	}

	// Simulate the window passing.
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow("1.2.3.4") {
		t.Fatal("request after window blocked; want allowed")
	}
}

func TestMiddlewareLimitsOnlyMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	handler := rl.Middleware(func(r *http.Request) string { return "1.2.3.4" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec.Code
	}

	if got := do(http.MethodPost); got != http.StatusOK {
		t.Fatalf("first POST = %d; want 200", got)
	}
	if got := do(http.MethodPost); got != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d; want 429", got)
	}
	for i := 0; i < 5; i++ {
		if got := do(http.MethodGet); got != http.StatusOK {
			t.Fatalf("GET #%d = %d; want 200", i+1, got)
		}
	}
}

func TestCleanupRemovesStaleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()

	rl.mu.Lock()
	_, exists := rl.clients["1.2.3.4"]
	rl.mu.Unlock()
	if exists {
		t.Fatal("stale client entry not cleaned up")
	}
}
