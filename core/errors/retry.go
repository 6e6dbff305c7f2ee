package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Unbounded as MaxAttempts retries until the context is cancelled.
const Unbounded = -1

// RetryPolicy defines a retry loop. The zero Multiplier gives a fixed delay
// between attempts.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first call. 0 disables
	// retry, Unbounded (-1) retries until the context ends.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=-1"`

	// Delay is the wait before the first retry.
	Delay time.Duration `yaml:"delay" validate:"gte=0"`

	// MaxDelay caps the delay when Multiplier grows it. 0 means no cap.
	MaxDelay time.Duration `yaml:"max_delay" validate:"gte=0"`

	// Multiplier grows the delay per attempt. Values <= 1 keep it fixed.
	Multiplier float64 `yaml:"multiplier" validate:"gte=0"`

	// UseRetryAfter waits for the endpoint's Retry-After hint when it is
	// longer than the computed delay.
	UseRetryAfter bool `yaml:"use_retry_after"`

	// JitterPercent spreads the delay by ±percent.
	JitterPercent float64 `yaml:"jitter_percent" validate:"gte=0,lte=1"`
}

// BatchRetryPolicy is the default for pagination batch rounds: a fixed 2s
// pause between attempts.
func BatchRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   30,
		Delay:         2 * time.Second,
		UseRetryAfter: true,
	}
}

// ClassRetryPolicy is the default for per-class fetches: a short fixed pause
// since each class fails independently.
func ClassRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   50,
		Delay:         100 * time.Millisecond,
		UseRetryAfter: true,
	}
}

// Unlimited reports whether the policy retries until cancellation.
func (p RetryPolicy) Unlimited() bool {
	return p.MaxAttempts < 0
}

// RetryEvent describes one failed attempt that will be retried.
type RetryEvent struct {
	Attempt int
	Err     error
	Delay   time.Duration
}

// RetryExecutor runs an operation under a RetryPolicy.
type RetryExecutor struct {
	policy  RetryPolicy
	onRetry func(RetryEvent)
	wait    func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor creates a RetryExecutor. onRetry, when non-nil, is called
// before each wait.
func NewRetryExecutor(policy RetryPolicy, onRetry func(RetryEvent)) *RetryExecutor {
	return &RetryExecutor{
		policy:  policy,
		onRetry: onRetry,
		wait:    waitBeforeRetry,
	}
}

// Policy returns the executor's policy.
func (e *RetryExecutor) Policy() RetryPolicy {
	return e.policy
}

// Execute calls fn until it succeeds, the attempts run out or ctx ends.
// Exhaustion returns an error matching ErrRetriesExhausted that also wraps
// the last failure; cancellation wraps ctx.Err() and the last failure.
func (e *RetryExecutor) Execute(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelled(err, lastErr)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if isContextError(lastErr) && ctx.Err() != nil {
			return cancelled(ctx.Err(), nil)
		}

		if !e.shouldRetry(attempt) {
			if e.policy.MaxAttempts == 0 {
				return lastErr
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, lastErr)
		}

		delay := e.computeDelay(lastErr, attempt)
		if e.onRetry != nil {
			e.onRetry(RetryEvent{Attempt: attempt + 1, Err: lastErr, Delay: delay})
		}
		if err := e.wait(ctx, delay); err != nil {
			return cancelled(err, lastErr)
		}
	}
}

// shouldRetry determines if another attempt should be made.
func (e *RetryExecutor) shouldRetry(attempt int) bool {
	return e.policy.Unlimited() || attempt < e.policy.MaxAttempts
}

// computeDelay calculates the delay for the next retry attempt.
func (e *RetryExecutor) computeDelay(err error, attempt int) time.Duration {
	delay := AddJitter(CalculateDelay(attempt, &e.policy), e.policy.JitterPercent)
	if e.policy.UseRetryAfter {
		if hint := extractRetryAfter(err); hint > delay {
			return hint
		}
	}
	return delay
}

// extractRetryAfter pulls a Retry-After hint from endpoint or tiered errors.
func extractRetryAfter(err error) time.Duration {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return ee.RetryAfter
	}
	var te *TieredError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cancelled(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %w)", ctxErr, lastErr)
}

// waitBeforeRetry waits for the specified delay or returns if context is cancelled.
func waitBeforeRetry(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
