package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/adalundhe/wealthkg/core/degree"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/fetch"
	"github.com/adalundhe/wealthkg/core/query"
)

// DefaultClassProperty is the instance-of property used when none is given.
const DefaultClassProperty = "wdt:P31"

// AggregatorConfig controls per-class retries and fan-out.
type AggregatorConfig struct {
	ClassRetry coreerrors.RetryPolicy
	// Concurrency is the number of classes fetched at once. Values below 1
	// fetch sequentially.
	Concurrency int
}

// DefaultAggregatorConfig returns the stock per-class retry policy with
// sequential fetching.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{ClassRetry: coreerrors.ClassRetryPolicy(), Concurrency: 1}
}

// DiscoveryRequest selects the classes to analyze.
type DiscoveryRequest struct {
	// ClassProperty links an instance to its class, or a class to its
	// parent when ClassID is set.
	ClassProperty string
	// ClassID, when set, selects subclasses: ?class ClassProperty ClassID.
	ClassID string
	Filters query.Filters
	// Limit caps the number of classes. 0 means no cap.
	Limit int
}

// FetchAllRequest describes the per-class fetch.
type FetchAllRequest struct {
	ClassProperty string
	Filters       query.Filters
	Limit         int
	Distinct      bool
	// SkipFailed drops a class whose retries ran out instead of aborting.
	SkipFailed bool
}

// MultiClassRequest combines discovery and fetching.
type MultiClassRequest struct {
	Discovery DiscoveryRequest
	Fetch     FetchAllRequest
}

// Aggregator discovers classes and fetches one degree table per class.
type Aggregator struct {
	fetcher *fetch.Fetcher
	cfg     AggregatorConfig
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator on top of fetcher.
func NewAggregator(fetcher *fetch.Fetcher, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{fetcher: fetcher, cfg: cfg, logger: logger}
}

// DiscoverClasses returns the distinct class identifiers matching req, in
// endpoint order.
func (a *Aggregator) DiscoverClasses(ctx context.Context, req DiscoveryRequest) ([]string, error) {
	prop := req.ClassProperty
	if prop == "" {
		prop = DefaultClassProperty
	}
	q := a.fetcher.Builder().ClassDiscoveryQuery(prop, req.ClassID, req.Filters, req.Limit)

	classes, err := a.fetcher.Executor().Values(ctx, q, query.ClassVar)
	if err != nil {
		return nil, fmt.Errorf("discover classes: %w", err)
	}

	a.logger.Info("classes discovered", "property", prop, "class_id", req.ClassID, "count", len(classes))
	return classes, nil
}

// FetchAll fetches the degree table of every class with a direct query
// per class, retrying each class under the configured policy. Up to
// Concurrency classes are in flight at once; the result set keeps the
// order of classes regardless.
//
// When a class fails and SkipFailed is unset, the remaining fetches are
// cancelled and the classes fetched so far are returned with the error.
func (a *Aggregator) FetchAll(ctx context.Context, classes []string, req FetchAllRequest) (*ResultSet, error) {
	prop := req.ClassProperty
	if prop == "" {
		prop = DefaultClassProperty
	}
	limit := a.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}

	tables := make([]*degree.Table, len(classes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, class := range classes {
		if gctx.Err() != nil {
			break
		}
		i, class := i, class
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			table, err := a.fetchClass(gctx, class, prop, req)
			if err != nil {
				if req.SkipFailed && ctx.Err() == nil {
					a.logger.Error("class skipped", "class", class, "error", err)
					return nil
				}
				return fmt.Errorf("class %s: %w", class, err)
			}
			tables[i] = table
			a.logger.Debug("class fetched", "class", class, "n", i+1, "of", len(classes), "entities", table.Len())
			return nil
		})
	}
	err := g.Wait()

	rs := NewResultSet()
	for i, class := range classes {
		if tables[i] != nil {
			rs.Add(class, tables[i])
		}
	}
	if err != nil {
		return rs, err
	}

	a.logger.Info("classes fetched", "requested", len(classes), "fetched", rs.Len())
	return rs, nil
}

func (a *Aggregator) fetchClass(ctx context.Context, class, prop string, req FetchAllRequest) (*degree.Table, error) {
	fr := fetch.Request{
		ClassFilter: query.MembershipFilter(prop, class),
		Filters:     req.Filters,
		Limit:       req.Limit,
		Distinct:    req.Distinct,
	}

	var table *degree.Table
	executor := coreerrors.NewRetryExecutor(a.cfg.ClassRetry, func(ev coreerrors.RetryEvent) {
		a.logger.Warn("class fetch failed, retrying", "class", class, "attempt", ev.Attempt, "delay", ev.Delay, "error", ev.Err)
	})
	err := executor.Execute(ctx, func(ctx context.Context) error {
		t, err := a.fetcher.Fetch(ctx, fr)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	return table, err
}

// MultiClass discovers the classes and fetches them all.
func (a *Aggregator) MultiClass(ctx context.Context, req MultiClassRequest) (*ResultSet, error) {
	classes, err := a.DiscoverClasses(ctx, req.Discovery)
	if err != nil {
		return nil, err
	}
	if req.Fetch.ClassProperty == "" {
		req.Fetch.ClassProperty = req.Discovery.ClassProperty
	}
	return a.FetchAll(ctx, classes, req.Fetch)
}
