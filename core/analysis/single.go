// Package analysis turns fetched degree tables into per-class and
// cross-class inequality statistics.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adalundhe/wealthkg/core/degree"
	"github.com/adalundhe/wealthkg/core/fetch"
	"github.com/adalundhe/wealthkg/core/query"
	"github.com/adalundhe/wealthkg/core/stats"
)

// ClassAnalysis is the degree table of one class plus the parameters that
// produced it.
type ClassAnalysis struct {
	Table       *degree.Table
	ClassFilter string
	Distinct    bool
}

// NewClassAnalysis wraps a table. A nil table is treated as empty.
func NewClassAnalysis(table *degree.Table, classFilter string, distinct bool) *ClassAnalysis {
	if table == nil {
		table = degree.EmptyTable()
	}
	return &ClassAnalysis{Table: table, ClassFilter: classFilter, Distinct: distinct}
}

// EntityCount returns the number of entities in the table.
func (a *ClassAnalysis) EntityCount() int { return a.Table.Len() }

func (a *ClassAnalysis) Summary(col degree.Column) stats.Summary {
	return stats.Summarize(a.Table.Values(col))
}

func (a *ClassAnalysis) Gini(col degree.Column) float64 {
	return stats.Gini(a.Table.Values(col))
}

func (a *ClassAnalysis) Lorenz(col degree.Column) []float64 {
	return stats.Lorenz(a.Table.Values(col))
}

func (a *ClassAnalysis) Palma(col degree.Column) float64 {
	return stats.Palma(a.Table.Values(col))
}

func (a *ClassAnalysis) Pareto(col degree.Column) []stats.ParetoPoint {
	return stats.Pareto(a.Table.Values(col))
}

// SingleClassRequest selects one class by its triple patterns.
type SingleClassRequest struct {
	// ClassPatterns are predicate-object fragments applied to ?s, such as
	// "wdt:P31 wd:Q5".
	ClassPatterns []string
	Filters       query.Filters
	Distinct      bool
	Limit         int
}

// Analyzer runs single-class analyses.
type Analyzer struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(fetcher *fetch.Fetcher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{fetcher: fetcher, logger: logger}
}

// SingleClass fetches and wraps the degree table of one class.
func (a *Analyzer) SingleClass(ctx context.Context, req SingleClassRequest) (*ClassAnalysis, error) {
	classFilter := query.ClassFilter(req.ClassPatterns)
	table, err := a.fetcher.Fetch(ctx, fetch.Request{
		ClassFilter: classFilter,
		Filters:     req.Filters,
		Limit:       req.Limit,
		Distinct:    req.Distinct,
	})
	if err != nil {
		return nil, fmt.Errorf("single class: %w", err)
	}

	a.logger.Info("class fetched", "patterns", req.ClassPatterns, "entities", table.Len(), "distinct", req.Distinct)
	return NewClassAnalysis(table, classFilter, req.Distinct), nil
}
