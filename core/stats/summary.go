// Package stats computes the descriptive and inequality statistics used on
// degree distributions.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is the descriptive summary of one degree column.
type Summary struct {
	N        int     `json:"n"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	Mode     float64 `json:"mode"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Kurtosis float64 `json:"kurtosis"`
	Skewness float64 `json:"skewness"`
}

func sortedCopy(xs []float64) []float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return s
}

// Quantile returns the p-quantile of xs by linear interpolation between the
// closest ranks, the default numpy and pandas use. xs need not be sorted.
func Quantile(p float64, xs []float64) float64 {
	return quantileSorted(p, sortedCopy(xs))
}

func quantileSorted(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	p = math.Max(0, math.Min(1, p))
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Mode returns the most frequent value, preferring the smallest on ties.
func Mode(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := sortedCopy(xs)
	best, bestN := s[0], 0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if j-i > bestN {
			best, bestN = s[i], j-i
		}
		i = j
	}
	return best
}

// Skewness is the adjusted Fisher-Pearson sample skewness. It is NaN below
// three values and 0 for a constant sample.
func Skewness(xs []float64) float64 {
	if len(xs) < 3 {
		return math.NaN()
	}
	if constant(xs) {
		return 0
	}
	return stat.Skew(xs, nil)
}

// Kurtosis is the bias-corrected sample excess kurtosis. It is NaN below
// four values and 0 for a constant sample.
func Kurtosis(xs []float64) float64 {
	if len(xs) < 4 {
		return math.NaN()
	}
	if constant(xs) {
		return 0
	}
	return stat.ExKurtosis(xs, nil)
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// Summarize computes the descriptive summary of xs. Every field except N is
// NaN for an empty sample.
func Summarize(xs []float64) Summary {
	nan := math.NaN()
	if len(xs) == 0 {
		return Summary{Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan, Mode: nan,
			Mean: nan, StdDev: nan, Kurtosis: nan, Skewness: nan}
	}

	s := sortedCopy(xs)
	std := nan
	if len(s) > 1 {
		std = stat.StdDev(s, nil)
	}
	return Summary{
		N:        len(s),
		Min:      s[0],
		Q1:       quantileSorted(0.25, s),
		Median:   quantileSorted(0.5, s),
		Q3:       quantileSorted(0.75, s),
		Max:      s[len(s)-1],
		Mode:     Mode(s),
		Mean:     stat.Mean(s, nil),
		StdDev:   std,
		Kurtosis: Kurtosis(s),
		Skewness: Skewness(s),
	}
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
