// Package bands builds the reference lines and pointwise bands for QQ and
// PIT-ECDF goodness-of-fit plots, with finite-sample order-statistic
// corrections.
package bands

import (
	"math"
	"sort"

	montstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gofitdiag/domain/core"
)

// plottingAlpha is the continuity correction of the normal plotting
// position (i - alpha) / (n - 2*alpha + 1). 3/8 is a common alternative.
const plottingAlpha = math.Pi / 8

// QQResult is a normal QQ plot with its pointwise band.
type QQResult struct {
	// Theoretical holds the corrected normal plotting-position quantiles.
	Theoretical []float64
	// Sorted holds the order statistics of the residuals.
	Sorted []float64
	// Line is the reference line, Lower/Upper the pointwise band. With
	// Detrend set, Line is flat at zero and the others have the theoretical
	// quantiles subtracted.
	Line    []float64
	Lower   []float64
	Upper   []float64
	Detrend bool
}

// QQ builds a normal QQ plot for the residuals r at confidence level cl.
// When a simulated residual ensemble rsim is supplied, the line and band are
// empirical quantiles across replicates of the sorted simulated residuals;
// otherwise the band derives from the Beta sampling distribution of uniform
// order statistics mapped through the normal quantile function.
func QQ(r []float64, cl float64, detrend bool, rsim [][]float64) (*QQResult, error) {
	if cl <= 0 || cl >= 1 {
		return nil, core.ErrBadConfidenceLevel
	}
	n := len(r)

	theor := make([]float64, n)
	for i := 0; i < n; i++ {
		pos := (float64(i+1) - plottingAlpha) / (float64(n) - 2*plottingAlpha + 1)
		theor[i] = distuv.UnitNormal.Quantile(pos)
	}

	sorted := make([]float64, n)
	copy(sorted, r)
	sort.Float64s(sorted)

	var line, lower, upper []float64
	if rsim != nil {
		var err error
		line, lower, upper, err = ensembleBand(rsim, cl)
		if err != nil {
			return nil, err
		}
	} else {
		line = make([]float64, n)
		copy(line, theor)
		lower = make([]float64, n)
		upper = make([]float64, n)
		for i := 0; i < n; i++ {
			// Beta(i, n+1-i) is the sampling distribution of the i-th
			// uniform order statistic.
			beta := distuv.Beta{Alpha: float64(i + 1), Beta: float64(n - i)}
			lower[i] = distuv.UnitNormal.Quantile(beta.Quantile(0.5 - cl/2))
			upper[i] = distuv.UnitNormal.Quantile(beta.Quantile(0.5 + cl/2))
		}
	}

	if detrend {
		for i := 0; i < n; i++ {
			sorted[i] -= theor[i]
			line[i] -= theor[i]
			lower[i] -= theor[i]
			upper[i] -= theor[i]
		}
	}

	return &QQResult{
		Theoretical: theor,
		Sorted:      sorted,
		Line:        line,
		Lower:       lower,
		Upper:       upper,
		Detrend:     detrend,
	}, nil
}

// ensembleBand sorts each replicate's residuals and takes per-order-statistic
// quantiles across replicates for the median line and band. Failed refits
// leave NaN-filled rows in the matrix; those replicates are skipped here.
func ensembleBand(rsim [][]float64, cl float64) (line, lower, upper []float64, err error) {
	if len(rsim) == 0 {
		return nil, nil, nil, core.ErrEmptyEnsemble
	}
	n := len(rsim[0])
	sortedSim := make([][]float64, 0, len(rsim))
	for _, row := range rsim {
		if !finiteRow(row) {
			continue
		}
		s := make([]float64, len(row))
		copy(s, row)
		sort.Float64s(s)
		sortedSim = append(sortedSim, s)
	}
	if len(sortedSim) == 0 {
		return nil, nil, nil, core.ErrEmptyEnsemble
	}

	line = make([]float64, n)
	lower = make([]float64, n)
	upper = make([]float64, n)
	for c := 0; c < n; c++ {
		col := make([]float64, len(sortedSim))
		for i := range sortedSim {
			col[i] = sortedSim[i][c]
		}
		med, errMed := montstats.Percentile(col, 50)
		lo, errLo := montstats.Percentile(col, (0.5-cl/2)*100)
		up, errUp := montstats.Percentile(col, (0.5+cl/2)*100)
		if errMed != nil || errLo != nil || errUp != nil {
			return nil, nil, nil, core.ErrEmptyEnsemble
		}
		line[c], lower[c], upper[c] = med, lo, up
	}
	return line, lower, upper, nil
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
