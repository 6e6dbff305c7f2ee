package errors

import (
	"math"
	"math/rand"
	"time"
)

// CalculateDelay computes the delay before retry number attempt+1:
// delay * multiplier^attempt, capped at MaxDelay when set. A multiplier of
// 1 or less keeps the delay fixed.
func CalculateDelay(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil {
		return 0
	}
	if policy.Multiplier <= 1 {
		return capDelay(policy.Delay, policy.MaxDelay)
	}
	factor := math.Pow(policy.Multiplier, float64(attempt))
	delay := time.Duration(float64(policy.Delay) * factor)
	return capDelay(delay, policy.MaxDelay)
}

// capDelay ensures the delay does not exceed a non-zero maximum.
func capDelay(delay, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// AddJitter applies a random jitter of ±jitterPercent to the delay.
func AddJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 || delay <= 0 {
		return delay
	}
	jitterRange := float64(delay) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	return ensurePositiveDelay(time.Duration(float64(delay) + offset))
}

// ensurePositiveDelay ensures the delay is at least 1 millisecond.
func ensurePositiveDelay(delay time.Duration) time.Duration {
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}
