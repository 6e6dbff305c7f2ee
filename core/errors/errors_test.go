package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestErrorTierString(t *testing.T) {
	tests := []struct {
		tier ErrorTier
		want string
	}{
		{TierTransient, "transient"},
		{TierPermanent, "permanent"},
		{TierUserFixable, "user_fixable"},
		{TierExternalRateLimit, "external_rate_limit"},
		{TierExternalDegrading, "external_degrading"},
		{ErrorTier(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.want {
			t.Errorf("ErrorTier(%d).String() = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestWrap_MatchesSentinel(t *testing.T) {
	cause := errors.New("parse \"::\": missing protocol scheme")
	err := fmt.Errorf("new client: %w", Wrap(ErrInvalidEndpointURL, cause))

	if !errors.Is(err, ErrInvalidEndpointURL) {
		t.Error("wrapped error should match ErrInvalidEndpointURL")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should reach its cause")
	}
	if errors.Is(err, ErrNoValidClasses) {
		t.Error("wrapped error must not match an unrelated sentinel")
	}
	if GetTier(err) != TierUserFixable {
		t.Errorf("GetTier() = %v, want user_fixable", GetTier(err))
	}
}

func TestEndpointError_Tier(t *testing.T) {
	tests := []struct {
		name string
		err  *EndpointError
		want ErrorTier
	}{
		{"network", &EndpointError{Op: OpRequest, Err: io.ErrUnexpectedEOF}, TierTransient},
		{"rate limited", &EndpointError{Op: OpStatus, StatusCode: http.StatusTooManyRequests}, TierExternalRateLimit},
		{"bad gateway", &EndpointError{Op: OpStatus, StatusCode: http.StatusBadGateway}, TierExternalDegrading},
		{"bad query", &EndpointError{Op: OpStatus, StatusCode: http.StatusBadRequest}, TierPermanent},
		{"truncated json", &EndpointError{Op: OpDecode, StatusCode: http.StatusOK}, TierTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Tier(); got != tt.want {
				t.Errorf("Tier() = %v, want %v", got, tt.want)
			}
			if got := GetTier(fmt.Errorf("batch 2: %w", tt.err)); got != tt.want {
				t.Errorf("GetTier(wrapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEndpointError_Message(t *testing.T) {
	err := &EndpointError{Endpoint: "https://query.example.org/sparql", Op: OpStatus, StatusCode: 503, Body: "overloaded"}
	msg := err.Error()
	for _, want := range []string{"query.example.org", "status", "503", "overloaded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
