package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Gini returns the Gini coefficient of xs: 0 for perfect equality, (n-1)/n
// when a single value holds everything. NaN for samples with fewer than two
// values or a zero sum.
func Gini(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	s := sortedCopy(xs)
	total := floats.Sum(s)
	if total == 0 {
		return math.NaN()
	}

	var weighted float64
	for i, x := range s {
		weighted += float64(i+1) * x
	}
	fn := float64(n)
	return 2*weighted/(fn*total) - (fn+1)/fn
}

// Lorenz returns the n+1 points of the Lorenz curve of xs: the cumulative
// share of the total held by the smallest k values, starting at 0. Nil for
// an empty sample.
func Lorenz(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	s := sortedCopy(xs)
	total := floats.Sum(s)

	points := make([]float64, len(s)+1)
	floats.CumSum(points[1:], s)
	floats.Scale(1/total, points[1:])
	return points
}

// Palma returns the Palma ratio (1 - Q90) / Q40 computed on the Lorenz
// points of xs. The result may be NaN or infinite for degenerate samples;
// callers filter those.
func Palma(xs []float64) float64 {
	points := Lorenz(xs)
	if points == nil {
		return math.NaN()
	}
	q90 := quantileSorted(0.9, points)
	q40 := quantileSorted(0.4, points)
	return (1 - q90) / q40
}

// ParetoPoint is one bar of a Pareto chart.
type ParetoPoint struct {
	Value             float64 `json:"value"`
	CumulativePercent float64 `json:"cumulative_percent"`
}

// Pareto orders xs descending and attaches the running share of the total,
// in percent.
func Pareto(xs []float64) []ParetoPoint {
	if len(xs) == 0 {
		return nil
	}
	s := sortedCopy(xs)
	sort.Sort(sort.Reverse(sort.Float64Slice(s)))
	total := floats.Sum(s)

	points := make([]ParetoPoint, len(s))
	var running float64
	for i, x := range s {
		running += x
		pct := math.NaN()
		if total != 0 {
			pct = 100 * running / total
		}
		points[i] = ParetoPoint{Value: x, CumulativePercent: pct}
	}
	return points
}
