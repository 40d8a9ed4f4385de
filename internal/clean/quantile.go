package clean

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile of vals using linear interpolation
// between closest ranks (position q*(n-1)). vals is not modified.
// An empty input yields NaN.
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantileSorted(cp, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	a, b := sorted[lo], sorted[hi]
	if lo == hi || a == b {
		return a
	}
	w := pos - float64(lo)
	// -Inf next to +Inf has no interpolated value; take the closer rank.
	if math.IsInf(a, 0) && math.IsInf(b, 0) {
		if w < 0.5 {
			return a
		}
		return b
	}
	return a*(1-w) + b*w
}
