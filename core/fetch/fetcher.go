// Package fetch retrieves degree tables for a class, switching between a
// single direct query and sampled, batched queries for large limits.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/adalundhe/wealthkg/core/degree"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/query"
)

const (
	DefaultDirectLimit = 10000
	DefaultBatchSize   = 10000
)

// DefaultHardCappedHosts lists endpoints that reject result sets above
// their own cap, so they are always queried directly.
var DefaultHardCappedHosts = []string{"dbpedia.org"}

// Executor runs queries against an endpoint. *sparql.Client satisfies it.
type Executor interface {
	Counts(ctx context.Context, q, countVar string) ([]degree.Count, error)
	Values(ctx context.Context, q, variable string) ([]string, error)
}

// Config controls the direct/batched decision and batch retries.
type Config struct {
	DirectLimit int
	BatchSize   int
	HardCapped  bool
	BatchRetry  coreerrors.RetryPolicy
}

// DefaultConfig returns the stock thresholds with the bounded batch policy.
func DefaultConfig() Config {
	return Config{
		DirectLimit: DefaultDirectLimit,
		BatchSize:   DefaultBatchSize,
		BatchRetry:  coreerrors.BatchRetryPolicy(),
	}
}

// Request describes one class fetch.
type Request struct {
	ClassFilter string
	Filters     query.Filters
	Limit       int
	Distinct    bool
}

// Fetcher produces merged degree tables.
type Fetcher struct {
	exec    Executor
	builder *query.Builder
	cfg     Config
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. Non-positive sizes take defaults.
func NewFetcher(exec Executor, builder *query.Builder, cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.DirectLimit <= 0 {
		cfg.DirectLimit = DefaultDirectLimit
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = query.NewBuilder(nil)
	}
	return &Fetcher{exec: exec, builder: builder, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (f *Fetcher) Config() Config { return f.cfg }

// Executor returns the executor queries run on.
func (f *Fetcher) Executor() Executor { return f.exec }

// Builder returns the query builder.
func (f *Fetcher) Builder() *query.Builder { return f.builder }

// Fetch returns the degree table for req. Limits up to DirectLimit, and
// every request against a hard-capped endpoint, use Direct. Larger limits
// sample the entity list first and count degrees in batches.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*degree.Table, error) {
	if req.Limit <= f.cfg.DirectLimit || f.cfg.HardCapped {
		return f.Direct(ctx, req)
	}
	return f.batched(ctx, req)
}

// Direct issues one outgoing and one incoming query and merges them.
func (f *Fetcher) Direct(ctx context.Context, req Request) (*degree.Table, error) {
	out, err := f.exec.Counts(ctx,
		f.builder.DegreeQuery(query.Outgoing, req.ClassFilter, req.Filters, req.Limit, req.Distinct),
		query.OutgoingCountVar)
	if err != nil {
		return nil, fmt.Errorf("outgoing degrees: %w", err)
	}

	in, err := f.exec.Counts(ctx,
		f.builder.DegreeQuery(query.Incoming, req.ClassFilter, req.Filters, req.Limit, req.Distinct),
		query.IncomingCountVar)
	if err != nil {
		return nil, fmt.Errorf("incoming degrees: %w", err)
	}

	return degree.Merge(out, in), nil
}

func (f *Fetcher) batched(ctx context.Context, req Request) (*degree.Table, error) {
	entities, err := f.exec.Values(ctx,
		f.builder.SampleEntitiesQuery(req.ClassFilter, req.Filters, req.Limit),
		query.EntityVar)
	if err != nil {
		return nil, fmt.Errorf("sample entities: %w", err)
	}
	if len(entities) == 0 {
		f.logger.Info("no entities sampled", "limit", req.Limit)
		return degree.EmptyTable(), nil
	}

	batches := Partition(entities, f.cfg.BatchSize)
	parts := make([]*degree.Table, 0, len(batches))
	for i, batch := range batches {
		part, err := f.fetchBatch(ctx, req, batch, i+1, len(batches))
		if err != nil {
			return nil, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		f.logger.Info("batch fetched", "batch", i+1, "of", len(batches), "entities", len(batch), "rows", part.Len())
		parts = append(parts, part)
	}

	return degree.Concat(parts...), nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, req Request, entities []string, n, total int) (*degree.Table, error) {
	outQ := f.builder.BatchDegreeQuery(query.Outgoing, req.ClassFilter, entities, req.Filters, req.Distinct)
	inQ := f.builder.BatchDegreeQuery(query.Incoming, req.ClassFilter, entities, req.Filters, req.Distinct)

	var part *degree.Table
	executor := coreerrors.NewRetryExecutor(f.cfg.BatchRetry, func(ev coreerrors.RetryEvent) {
		f.logger.Warn("batch failed, retrying",
			"batch", n, "of", total, "attempt", ev.Attempt, "delay", ev.Delay, "error", ev.Err)
	})
	err := executor.Execute(ctx, func(ctx context.Context) error {
		out, err := f.exec.Counts(ctx, outQ, query.OutgoingCountVar)
		if err != nil {
			return err
		}
		in, err := f.exec.Counts(ctx, inQ, query.IncomingCountVar)
		if err != nil {
			return err
		}
		part = degree.Merge(out, in)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// Partition splits items into consecutive chunks of at most size elements.
func Partition(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// HardCappedEndpoint reports whether endpoint's host is, or is a subdomain
// of, one of hosts.
func HardCappedEndpoint(endpoint string, hosts []string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
