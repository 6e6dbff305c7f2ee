// Package errors implements the tiered error taxonomy used across wealthkg:
// classification of endpoint failures and the bounded, cancellable retry
// loops that absorb them.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorTier represents the classification tier for errors.
type ErrorTier int

const (
	// TierTransient indicates temporary errors that should be silently retried.
	// Examples: network timeouts, connection resets.
	TierTransient ErrorTier = iota

	// TierPermanent indicates errors that will not resolve with retry.
	// Examples: rejected query syntax, no valid classes for a statistic.
	TierPermanent

	// TierUserFixable indicates errors that require user intervention.
	// Examples: malformed endpoint URL, invalid configuration.
	TierUserFixable

	// TierExternalRateLimit indicates rate limiting by the endpoint (HTTP 429).
	TierExternalRateLimit

	// TierExternalDegrading indicates endpoint degradation (HTTP 5xx).
	TierExternalDegrading
)

var tierNames = map[ErrorTier]string{
	TierTransient:         "transient",
	TierPermanent:         "permanent",
	TierUserFixable:       "user_fixable",
	TierExternalRateLimit: "external_rate_limit",
	TierExternalDegrading: "external_degrading",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	StatusCode int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is matches sentinels by identity, then by tier and message so that
// wrapped copies of a sentinel still satisfy errors.Is.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if !errors.As(target, &te) {
		return false
	}
	return e == te || (e.Tier == te.Tier && e.Message == te.Message)
}

// NewTieredError creates a new TieredError with the given tier and message.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
	}
}

// WithRetryAfter adds a retry-after duration to the error.
func (e *TieredError) WithRetryAfter(d time.Duration) *TieredError {
	e.RetryAfter = d
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Permanent.
func GetTier(err error) ErrorTier {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return ee.Tier()
	}
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierPermanent
}

// Sentinel errors.
var (
	// ErrInvalidEndpointURL is returned at construction when the SPARQL
	// endpoint is not an absolute http(s) URL.
	ErrInvalidEndpointURL = NewTieredError(TierUserFixable, "invalid endpoint URL", nil)

	// ErrInvalidConfig is returned when configuration fails validation.
	ErrInvalidConfig = NewTieredError(TierUserFixable, "invalid configuration", nil)

	// ErrNoValidClasses is returned by aggregate statistics when no class
	// produced a finite value.
	ErrNoValidClasses = NewTieredError(TierPermanent, "no valid classes", nil)

	// ErrCircuitOpen is returned without contacting the endpoint while its
	// circuit breaker is open.
	ErrCircuitOpen = NewTieredError(TierExternalDegrading, "endpoint circuit open", nil)

	// ErrRetriesExhausted marks a retry loop that ran out of attempts.
	ErrRetriesExhausted = NewTieredError(TierPermanent, "retries exhausted", nil)
)

// Wrap attaches a sentinel to a cause so errors.Is(err, sentinel) holds
// while the cause stays reachable through errors.As.
func Wrap(sentinel *TieredError, cause error) error {
	return &TieredError{
		Tier:       sentinel.Tier,
		Message:    sentinel.Message,
		Underlying: cause,
		StatusCode: sentinel.StatusCode,
	}
}
