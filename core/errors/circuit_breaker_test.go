package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(failures int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("https://query.example.org/sparql", CircuitBreakerConfig{
		ConsecutiveFailures: failures,
		Cooldown:            cooldown,
	})
	cb.now = clock.now
	return cb, clock
}

var errOverloaded = &EndpointError{Op: OpStatus, StatusCode: http.StatusServiceUnavailable}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)
	if cb.State() != CircuitClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() = %v, want nil", err)
	}
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, 10*time.Second)

	for i := 0; i < 2; i++ {
		cb.Record(errOverloaded)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("State() = %v after 2 failures, want closed", cb.State())
	}

	cb.Record(errOverloaded)
	if cb.State() != CircuitOpen {
		t.Fatalf("State() = %v after 3 failures, want open", cb.State())
	}

	err := cb.Allow()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
	if got := extractRetryAfter(err); got != 10*time.Second {
		t.Errorf("RetryAfter = %v, want 10s", got)
	}
	if GetTier(err) != TierExternalDegrading {
		t.Errorf("GetTier() = %v, want external_degrading", GetTier(err))
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	cb.Record(errOverloaded)
	cb.Record(errOverloaded)
	cb.Record(nil)
	if cb.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", cb.Failures())
	}
}

func TestCircuitBreaker_PermanentAndCancelledDoNotCount(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Second)

	cb.Record(&EndpointError{Op: OpStatus, StatusCode: http.StatusBadRequest})
	cb.Record(fmt.Errorf("batch: %w", context.Canceled))
	if cb.State() != CircuitClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)
	cb.Record(errOverloaded)

	clock.advance(4 * time.Second)
	if got := extractRetryAfter(cb.Allow()); got != 6*time.Second {
		t.Errorf("RetryAfter = %v, want 6s", got)
	}

	clock.advance(6 * time.Second)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v, want nil", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("State() = %v, want half_open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second Allow() during probe = %v, want ErrCircuitOpen", err)
	}

	// a failed probe reopens for a full cooldown
	cb.Record(errOverloaded)
	if cb.State() != CircuitOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}
	if got := extractRetryAfter(cb.Allow()); got != 10*time.Second {
		t.Errorf("RetryAfter = %v, want 10s", got)
	}

	clock.advance(10 * time.Second)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v", err)
	}
	cb.Record(nil)
	if cb.State() != CircuitClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	var nilBreaker *CircuitBreaker
	if err := nilBreaker.Allow(); err != nil {
		t.Errorf("nil Allow() = %v", err)
	}
	nilBreaker.Record(errOverloaded)

	cb, _ := newTestBreaker(0, time.Second)
	for i := 0; i < 100; i++ {
		cb.Record(errOverloaded)
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("disabled Allow() = %v", err)
	}
}

func TestCircuitState_String(t *testing.T) {
	if CircuitHalfOpen.String() != "half_open" || CircuitState(9).String() != "unknown" {
		t.Error("unexpected CircuitState names")
	}
}
