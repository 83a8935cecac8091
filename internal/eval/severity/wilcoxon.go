package severity

import (
	"math"
	"sort"
)

// WilcoxonSignedRank returns the two-sided p-value of the Wilcoxon
// signed-rank test for paired differences, using the normal approximation
// with tie-corrected variance. Zero differences are dropped; ok is false
// when none remain.
func WilcoxonSignedRank(diffs []float64) (p float64, ok bool) {
	nonZero := make([]float64, 0, len(diffs))
	for _, d := range diffs {
		if d != 0 {
			nonZero = append(nonZero, d)
		}
	}
	n := len(nonZero)
	if n == 0 {
		return 0, false
	}

	sort.Slice(nonZero, func(i, j int) bool {
		return math.Abs(nonZero[i]) < math.Abs(nonZero[j])
	})

	// Average ranks over runs of equal magnitude.
	ranks := make([]float64, n)
	var tieTerm float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && math.Abs(nonZero[j+1]) == math.Abs(nonZero[i]) {
			j++
		}
		rank := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[k] = rank
		}
		t := float64(j - i + 1)
		tieTerm += t*t*t - t
		i = j + 1
	}

	var rPlus, rMinus float64
	for i, d := range nonZero {
		if d > 0 {
			rPlus += ranks[i]
		} else {
			rMinus += ranks[i]
		}
	}

	nf := float64(n)
	stat := math.Min(rPlus, rMinus)
	mean := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - tieTerm/48
	if variance <= 0 {
		return 1, true
	}

	z := (stat - mean) / math.Sqrt(variance)
	return math.Erfc(math.Abs(z) / math.Sqrt2), true
}
