// Package sparql talks to SPARQL 1.1 endpoints over HTTP and decodes JSON
// result sets into degree counts and value lists.
package sparql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/adalundhe/wealthkg/core/cache"
	"github.com/adalundhe/wealthkg/core/degree"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/query"
)

const (
	resultsMediaType = "application/sparql-results+json"
	defaultUserAgent = "wealthkg/1.0"
	defaultTimeout   = 2 * time.Minute
	maxErrorBody     = 512
)

// Config describes one endpoint.
type Config struct {
	Endpoint          string
	Method            string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCache serves repeated queries from rc.
func WithCache(rc cache.ResponseCache) Option {
	return func(c *Client) { c.cache = rc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCircuitBreaker fails requests fast while cb is open.
func WithCircuitBreaker(cb *coreerrors.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// Client issues SELECT queries against a single endpoint. Failures are
// returned as *errors.EndpointError and never retried here.
type Client struct {
	endpoint  string
	method    string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	cache     cache.ResponseCache
	metrics   *Metrics
	breaker   *coreerrors.CircuitBreaker
	logger    *slog.Logger
	flight    singleflight.Group
	now       func() time.Time
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodGet, http.MethodPost:
	default:
		return nil, coreerrors.Wrap(coreerrors.ErrInvalidConfig, fmt.Errorf("unsupported method %q", cfg.Method))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		endpoint:  cfg.Endpoint,
		method:    method,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		limiter:   newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrInvalidEndpointURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return coreerrors.Wrap(coreerrors.ErrInvalidEndpointURL, fmt.Errorf("%q: scheme must be http or https", raw))
	}
	if u.Host == "" {
		return coreerrors.Wrap(coreerrors.ErrInvalidEndpointURL, fmt.Errorf("%q: missing host", raw))
	}
	return nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Method returns the HTTP method in use.
func (c *Client) Method() string { return c.method }

// Select runs q and decodes the JSON result set.
func (c *Client) Select(ctx context.Context, q string) (*Results, error) {
	key := cache.Key(c.method, c.endpoint, q)
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			if res, err := decodeResults(bytes.NewReader(body)); err == nil {
				c.metrics.observeCacheHit()
				c.logger.Debug("sparql cache hit", "rows", res.Len())
				return res, nil
			}
		}
	}

	// Identical queries in flight share one request.
	v, err, shared := c.flight.Do(key, func() (any, error) {
		return c.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	body := v.([]byte)
	if shared {
		c.logger.Debug("sparql request shared", "endpoint", c.endpoint)
	}

	res, err := decodeResults(bytes.NewReader(body))
	if err != nil {
		return nil, &coreerrors.EndpointError{
			Endpoint:   c.endpoint,
			Op:         coreerrors.OpDecode,
			StatusCode: http.StatusOK,
			Err:        err,
		}
	}

	c.metrics.observeRows(res.Len())

	if c.cache != nil {
		c.cache.Set(key, body)
	}
	return res, nil
}

// Counts runs a degree query and returns its (entity, count) rows. A
// malformed result shape yields an empty slice and no error.
func (c *Client) Counts(ctx context.Context, q, countVar string) ([]degree.Count, error) {
	res, err := c.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	counts := res.Counts(query.EntityVar, countVar)
	if counts == nil && res.Len() > 0 {
		c.logger.Warn("unexpected result shape, treating as empty", "want", []string{query.EntityVar, countVar}, "vars", res.Vars)
	}
	return counts, nil
}

// Values runs q and returns the values of a single projected variable.
func (c *Client) Values(ctx context.Context, q, variable string) ([]string, error) {
	res, err := c.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	values := res.Values(variable)
	if values == nil && res.Len() > 0 {
		c.logger.Warn("unexpected result shape, treating as empty", "want", variable, "vars", res.Vars)
	}
	return values, nil
}

func (c *Client) newRequest(ctx context.Context, q string) (*http.Request, error) {
	form := url.Values{}
	form.Set("query", q)
	form.Set("format", "json")

	var req *http.Request
	var err error
	if c.method == http.MethodGet {
		sep := "?"
		if strings.Contains(c.endpoint, "?") {
			sep = "&"
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+sep+form.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", resultsMediaType)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// fetch waits for the rate limiter and performs one request unless the
// circuit breaker is open.
func (c *Client) fetch(ctx context.Context, q string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.breaker.Allow(); err != nil {
		c.metrics.observeRequest(c.method, "circuit_open", 0)
		return nil, err
	}

	start := c.now()
	body, err := c.roundTrip(ctx, q)
	elapsed := time.Since(start)
	c.breaker.Record(err)
	if err != nil {
		c.metrics.observeRequest(c.method, outcomeOf(err), elapsed.Seconds())
		c.logger.Warn("sparql request failed", "endpoint", c.endpoint, "elapsed", elapsed, "error", err)
		return nil, err
	}

	c.metrics.observeRequest(c.method, "ok", elapsed.Seconds())
	c.logger.Debug("sparql query", "bytes", len(body), "elapsed", elapsed)
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, q string) ([]byte, error) {
	req, err := c.newRequest(ctx, q)
	if err != nil {
		return nil, &coreerrors.EndpointError{Endpoint: c.endpoint, Op: coreerrors.OpRequest, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &coreerrors.EndpointError{Endpoint: c.endpoint, Op: coreerrors.OpRequest, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &coreerrors.EndpointError{Endpoint: c.endpoint, Op: coreerrors.OpRequest, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &coreerrors.EndpointError{
			Endpoint:   c.endpoint,
			Op:         coreerrors.OpStatus,
			StatusCode: resp.StatusCode,
			RetryAfter: coreerrors.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			Body:       truncate(string(body), maxErrorBody),
		}
	}
	return body, nil
}

func outcomeOf(err error) string {
	if ee, ok := err.(*coreerrors.EndpointError); ok {
		return string(ee.Op)
	}
	return "cancelled"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
