package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// EndpointOp names the stage of an endpoint round trip that failed.
type EndpointOp string

const (
	OpRequest EndpointOp = "request"
	OpStatus  EndpointOp = "status"
	OpDecode  EndpointOp = "decode"
)

// EndpointError is a network, HTTP status or decode failure talking to a
// SPARQL endpoint. The client returns it without retrying; pagination and
// aggregation retry it under their policies.
type EndpointError struct {
	Endpoint   string
	Op         EndpointOp
	StatusCode int
	RetryAfter time.Duration
	Body       string
	Err        error
}

func (e *EndpointError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "sparql endpoint %s: %s failed", e.Endpoint, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	} else if e.Body != "" {
		fmt.Fprintf(&sb, ": %s", e.Body)
	}
	return sb.String()
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// Tier classifies the failure: transport errors are transient, 429 is a
// rate limit, 5xx is degradation, anything else permanent.
func (e *EndpointError) Tier() ErrorTier {
	switch {
	case e.Op == OpRequest:
		return TierTransient
	case e.StatusCode == http.StatusTooManyRequests:
		return TierExternalRateLimit
	case e.StatusCode >= http.StatusInternalServerError:
		return TierExternalDegrading
	case e.Op == OpDecode:
		return TierTransient
	}
	return TierPermanent
}

// ParseRetryAfter reads a Retry-After header value in either delta-seconds
// or HTTP-date form. Unparseable or past values yield 0.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
