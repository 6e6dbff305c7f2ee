package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EarthMovers returns the first Wasserstein distance between the empirical
// distributions of u and v: the area between their CDFs. NaN when either
// sample is empty.
func EarthMovers(u, v []float64) float64 {
	if len(u) == 0 || len(v) == 0 {
		return math.NaN()
	}
	us, vs := sortedCopy(u), sortedCopy(v)
	all := sortedCopy(append(append([]float64(nil), us...), vs...))

	nu, nv := float64(len(us)), float64(len(vs))
	var dist float64
	for i := 0; i < len(all)-1; i++ {
		delta := all[i+1] - all[i]
		if delta == 0 {
			continue
		}
		cu := float64(sort.Search(len(us), func(k int) bool { return us[k] > all[i] })) / nu
		cv := float64(sort.Search(len(vs), func(k int) bool { return vs[k] > all[i] })) / nv
		dist += math.Abs(cu-cv) * delta
	}
	return dist
}

// KolmogorovSmirnov returns the two-sample KS statistic, the largest gap
// between the empirical CDFs of u and v. NaN when either sample is empty.
func KolmogorovSmirnov(u, v []float64) float64 {
	if len(u) == 0 || len(v) == 0 {
		return math.NaN()
	}
	return stat.KolmogorovSmirnov(sortedCopy(u), nil, sortedCopy(v), nil)
}

// NormalCDFTransform maps each value through the standard normal CDF. KS
// distances between classes are computed on transformed values.
func NormalCDFTransform(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = distuv.UnitNormal.CDF(x)
	}
	return out
}
