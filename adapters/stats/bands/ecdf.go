package bands

import (
	"gonum.org/v1/gonum/stat/distuv"

	"gofitdiag/domain/core"
)

// ECDFResult is the empirical CDF of PIT values on a scaled-rank grid with
// its pointwise simultaneous-coverage band.
type ECDFResult struct {
	// ScaledRank is the n+1 point grid over [0, 1].
	ScaledRank []float64
	// ECDF is the empirical CDF of the PIT values evaluated on the grid.
	ECDF []float64
	// Line is the identity reference (flat at zero when detrended).
	Line    []float64
	Lower   []float64
	Upper   []float64
	Detrend bool
}

// PITECDF builds the PIT empirical CDF and its pointwise band at confidence
// level cl. Under a correct model the PIT values are uniform, so the count
// of values at or below each grid point is Binomial(n, p). The binomial is
// discrete: naively inverting its quantile function can leave the achieved
// coverage below cl, so each bound is nudged outward by one count whenever
// the achieved CDF falls short of the target, then clamped to [0, 1].
func PITECDF(pit []float64, cl float64, detrend bool) (*ECDFResult, error) {
	if cl <= 0 || cl >= 1 {
		return nil, core.ErrBadConfidenceLevel
	}
	n := len(pit)
	grid := make([]float64, n+1)
	for i := range grid {
		grid[i] = float64(i) / float64(n)
	}

	lowerQ := 0.5 - cl/2
	upperQ := 0.5 + cl/2
	lower := make([]float64, n+1)
	upper := make([]float64, n+1)
	for i, p := range grid {
		lo := binomialQuantile(lowerQ, n, p)
		if binomialCDF(lo, n, p) > lowerQ {
			lo--
		}
		up := binomialQuantile(upperQ, n, p)
		if binomialCDF(up, n, p) < upperQ {
			up++
		}
		lower[i] = clamp(float64(lo)/float64(n), 0, 1)
		upper[i] = clamp(float64(up)/float64(n), 0, 1)
	}

	ecdf := make([]float64, n+1)
	for i, p := range grid {
		count := 0
		for _, v := range pit {
			if v <= p {
				count++
			}
		}
		ecdf[i] = float64(count) / float64(n)
	}

	line := make([]float64, n+1)
	copy(line, grid)
	if detrend {
		for i := range grid {
			ecdf[i] -= grid[i]
			lower[i] -= grid[i]
			upper[i] -= grid[i]
			line[i] = 0
		}
	}

	return &ECDFResult{
		ScaledRank: grid,
		ECDF:       ecdf,
		Line:       line,
		Lower:      lower,
		Upper:      upper,
		Detrend:    detrend,
	}, nil
}

// binomialQuantile is the smallest k with P(X <= k) >= q for
// X ~ Binomial(n, p), the standard discrete inverse CDF.
func binomialQuantile(q float64, n int, p float64) int {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	for k := 0; k <= n; k++ {
		if binomialCDF(k, n, p) >= q {
			return k
		}
	}
	return n
}

func binomialCDF(k, n int, p float64) float64 {
	if k < 0 {
		return 0
	}
	if k >= n {
		return 1
	}
	if p <= 0 {
		return 1
	}
	if p >= 1 {
		return 0
	}
	d := distuv.Binomial{N: float64(n), P: p}
	return d.CDF(float64(k))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
