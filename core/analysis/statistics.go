package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/adalundhe/wealthkg/core/degree"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/stats"
)

// Metric is a per-class scalar statistic over one degree column.
type Metric int

const (
	MetricGini Metric = iota
	MetricPalma
	MetricSkewness
	MetricKurtosis
)

var metricNames = map[Metric]string{
	MetricGini:     "gini",
	MetricPalma:    "palma",
	MetricSkewness: "skewness",
	MetricKurtosis: "kurtosis",
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMetric resolves a metric name.
func ParseMetric(s string) (Metric, error) {
	for m, name := range metricNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) compute(xs []float64) float64 {
	switch m {
	case MetricGini:
		return stats.Gini(xs)
	case MetricPalma:
		return stats.Palma(xs)
	case MetricSkewness:
		return stats.Skewness(xs)
	case MetricKurtosis:
		return stats.Kurtosis(xs)
	}
	return math.NaN()
}

// ClassValue is one class's value of a metric.
type ClassValue struct {
	Class string  `json:"class"`
	Value float64 `json:"value"`
}

// sample returns the sorted, optionally normal-CDF-transformed values of
// one class column. Results are memoized until the set changes.
func (rs *ResultSet) sample(class string, col degree.Column, transform bool) []float64 {
	key := sampleKey{class: class, col: col, transform: transform}
	if xs, ok := rs.samples.Get(key); ok {
		return xs
	}

	t, ok := rs.Table(class)
	if !ok {
		return nil
	}
	xs := t.Values(col)
	if transform {
		xs = stats.NormalCDFTransform(xs)
	}
	sort.Float64s(xs)
	rs.samples.Add(key, xs)
	return xs
}

// MetricValues returns the finite values of metric per class, in class
// order. Classes where the metric is undefined are left out.
func (rs *ResultSet) MetricValues(metric Metric, col degree.Column) []ClassValue {
	var out []ClassValue
	for _, class := range rs.Classes() {
		v := metric.compute(rs.sample(class, col, false))
		if stats.IsFinite(v) {
			out = append(out, ClassValue{Class: class, Value: v})
		}
	}
	return out
}

// AverageMetric returns the mean of metric over the classes where it is
// finite. ErrNoValidClasses is returned when there are none.
func (rs *ResultSet) AverageMetric(metric Metric, col degree.Column) (float64, error) {
	values := rs.MetricValues(metric, col)
	if len(values) == 0 {
		return math.NaN(), fmt.Errorf("average %s of %s: %w", metric, col, coreerrors.ErrNoValidClasses)
	}
	var sum float64
	for _, v := range values {
		sum += v.Value
	}
	return sum / float64(len(values)), nil
}

// EntityCounts returns the number of entities per class, in class order.
func (rs *ResultSet) EntityCounts() []ClassValue {
	classes := rs.Classes()
	out := make([]ClassValue, 0, len(classes))
	for _, class := range classes {
		t, _ := rs.Table(class)
		out = append(out, ClassValue{Class: class, Value: float64(t.Len())})
	}
	return out
}

// TotalEntities sums the entity counts of all classes.
func (rs *ResultSet) TotalEntities() int {
	total := 0
	for _, c := range rs.EntityCounts() {
		total += int(c.Value)
	}
	return total
}

// AverageEntities is the mean entity count per class.
func (rs *ResultSet) AverageEntities() (float64, error) {
	n := rs.Len()
	if n == 0 {
		return math.NaN(), fmt.Errorf("average entities: %w", coreerrors.ErrNoValidClasses)
	}
	return float64(rs.TotalEntities()) / float64(n), nil
}

// Distance selects the pairwise distance between class distributions.
type Distance int

const (
	// DistanceEarthMovers compares raw degree values.
	DistanceEarthMovers Distance = iota
	// DistanceKolmogorovSmirnov compares values after a standard normal CDF
	// transform.
	DistanceKolmogorovSmirnov
)

func (d Distance) String() string {
	if d == DistanceKolmogorovSmirnov {
		return "ks"
	}
	return "emd"
}

// ParseDistance accepts emd or ks.
func ParseDistance(s string) (Distance, error) {
	switch s {
	case "emd", "wasserstein":
		return DistanceEarthMovers, nil
	case "ks":
		return DistanceKolmogorovSmirnov, nil
	}
	return 0, fmt.Errorf("unknown distance %q", s)
}

// Matrix is a square distance matrix; Values[i][j] is the distance between
// Classes[i] and Classes[j].
type Matrix struct {
	Classes []string    `json:"classes"`
	Values  [][]float64 `json:"values"`
}

// DistanceMatrix compares every pair of classes on col. Classes are sorted
// ascending, the diagonal is 0 and the matrix is symmetric. Pairs involving
// an empty class are NaN.
func (rs *ResultSet) DistanceMatrix(col degree.Column, dist Distance) Matrix {
	classes := rs.SortedClasses()
	transform := dist == DistanceKolmogorovSmirnov

	samples := make([][]float64, len(classes))
	for i, class := range classes {
		samples[i] = rs.sample(class, col, transform)
	}

	values := make([][]float64, len(classes))
	for i := range values {
		values[i] = make([]float64, len(classes))
	}
	for i := range classes {
		for j := i + 1; j < len(classes); j++ {
			var d float64
			if dist == DistanceKolmogorovSmirnov {
				d = stats.KolmogorovSmirnov(samples[i], samples[j])
			} else {
				d = stats.EarthMovers(samples[i], samples[j])
			}
			values[i][j] = d
			values[j][i] = d
		}
	}
	return Matrix{Classes: classes, Values: values}
}
