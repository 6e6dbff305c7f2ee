package errors

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets every request through.
	CircuitClosed CircuitState = iota

	// CircuitOpen fails requests fast until the cooldown ends.
	CircuitOpen

	// CircuitHalfOpen lets a single probe through to test recovery.
	CircuitHalfOpen
)

var circuitStateNames = map[CircuitState]string{
	CircuitClosed:   "closed",
	CircuitOpen:     "open",
	CircuitHalfOpen: "half_open",
}

func (s CircuitState) String() string {
	if name, ok := circuitStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// CircuitBreakerConfig configures the endpoint circuit breaker.
type CircuitBreakerConfig struct {
	// ConsecutiveFailures trips the breaker. 0 disables it.
	ConsecutiveFailures int `yaml:"consecutive_failures" validate:"gte=0"`

	// Cooldown is how long the breaker stays open before a probe.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0"`
}

// DefaultCircuitBreakerConfig returns the default configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		ConsecutiveFailures: 10,
		Cooldown:            30 * time.Second,
	}
}

// CircuitBreaker stops requests to an endpoint that keeps failing with
// transient, rate-limit or degradation errors. Open-circuit rejections carry
// the remaining cooldown as RetryAfter so retry loops wait it out instead of
// spinning. A nil *CircuitBreaker allows everything.
type CircuitBreaker struct {
	mu         sync.Mutex
	state      CircuitState
	failures   int
	openedAt   time.Time
	probing    bool
	config     CircuitBreakerConfig
	resourceID string
	now        func() time.Time
}

// NewCircuitBreaker creates a closed breaker for resourceID.
func NewCircuitBreaker(resourceID string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:      CircuitClosed,
		config:     config,
		resourceID: resourceID,
		now:        time.Now,
	}
}

func (cb *CircuitBreaker) disabled() bool {
	return cb == nil || cb.config.ConsecutiveFailures <= 0
}

// Allow returns nil when a request may proceed, or an error matching
// ErrCircuitOpen otherwise. A request allowed in the half-open state is the
// probe; its outcome must be passed to Record.
func (cb *CircuitBreaker) Allow() error {
	if cb.disabled() {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		remaining := cb.config.Cooldown - cb.now().Sub(cb.openedAt)
		if remaining > 0 {
			return cb.openError(remaining)
		}
		cb.transitionTo(CircuitHalfOpen)
		cb.probing = true
		return nil
	case CircuitHalfOpen:
		if cb.probing {
			return cb.openError(0)
		}
		cb.probing = true
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) openError(remaining time.Duration) error {
	cause := fmt.Errorf("%s: %d consecutive failures", cb.resourceID, cb.failures)
	return NewTieredError(ErrCircuitOpen.Tier, ErrCircuitOpen.Message, cause).WithRetryAfter(remaining)
}

// Record feeds back the outcome of an allowed request. Transient, rate-limit
// and degradation errors count as failures. Any other response shows the
// endpoint is answering and counts as success. Cancellations are ignored.
func (cb *CircuitBreaker) Record(err error) {
	if cb.disabled() {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err != nil && isContextError(err) {
		return
	}
	if err == nil || !tripsBreaker(err) {
		cb.failures = 0
		if cb.state != CircuitClosed {
			cb.transitionTo(CircuitClosed)
		}
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.config.ConsecutiveFailures {
		cb.transitionTo(CircuitOpen)
	}
}

func tripsBreaker(err error) bool {
	switch GetTier(err) {
	case TierTransient, TierExternalRateLimit, TierExternalDegrading:
		return true
	}
	return false
}

func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	cb.state = state
	if state == CircuitOpen {
		cb.openedAt = cb.now()
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	if cb == nil {
		return 0
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
