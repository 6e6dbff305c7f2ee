package cmd

import (
	"errors"
	"fmt"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/degree"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
)

// aggregateMetrics are averaged over classes in every multi-class report.
var aggregateMetrics = []analysis.Metric{
	analysis.MetricGini,
	analysis.MetricPalma,
	analysis.MetricSkewness,
	analysis.MetricKurtosis,
}

type aggregateReport struct {
	Classes         int                  `json:"classes"`
	TotalEntities   int                  `json:"total_entities"`
	AverageEntities jsonFloat            `json:"average_entities"`
	Column          string               `json:"column"`
	Averages        map[string]jsonFloat `json:"averages"`
	Matrix          *matrixJSON          `json:"matrix,omitempty"`

	// Per-class inputs of the averages. Classes with an undefined metric
	// are absent from that metric's list.
	Entities []analysis.ClassValue            `json:"entities"`
	PerClass map[string][]analysis.ClassValue `json:"per_class"`
}

// buildAggregate averages every metric over rs. A metric with no finite
// class value is reported as NaN rather than failing the report.
func buildAggregate(rs *analysis.ResultSet, col degree.Column) (*aggregateReport, error) {
	r := &aggregateReport{
		Classes:       rs.Len(),
		TotalEntities: rs.TotalEntities(),
		Column:        col.String(),
		Averages:      make(map[string]jsonFloat, len(aggregateMetrics)),
		Entities:      rs.EntityCounts(),
		PerClass:      make(map[string][]analysis.ClassValue, len(aggregateMetrics)),
	}

	avg, err := rs.AverageEntities()
	if err != nil {
		return nil, err
	}
	r.AverageEntities = jsonFloat(avg)

	for _, m := range aggregateMetrics {
		v, err := rs.AverageMetric(m, col)
		if err != nil && !errors.Is(err, coreerrors.ErrNoValidClasses) {
			return nil, err
		}
		r.Averages[m.String()] = jsonFloat(v)
		r.PerClass[m.String()] = rs.MetricValues(m, col)
	}
	return r, nil
}

func (p *printer) aggregate(r *aggregateReport) {
	p.heading("Aggregate over %d classes (%s)", r.Classes, r.Column)
	p.field("total entities", fmt.Sprintf("%d", r.TotalEntities))
	p.field("average entities", formatFloat(float64(r.AverageEntities)))
	for _, m := range aggregateMetrics {
		p.field("average "+m.String(), formatFloat(float64(r.Averages[m.String()])))
	}
}
