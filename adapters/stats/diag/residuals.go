package diag

import (
	"math"
	"math/rand/v2"

	montstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gofitdiag/domain/core"
	"gofitdiag/domain/fit"
)

// QuantileResult is a quantile residual array with its one-sided clip flags.
// A channel whose PIT landed exactly at 0 (1) carries a substituted finite
// residual and an upper (lower) flag instead of an unbounded value.
type QuantileResult struct {
	R            []float64
	LowerClipped []bool
	UpperClipped []bool
}

// Residuals returns the per-channel deviance or Pearson residuals at the
// point estimate. Quantile residuals carry clip flags and have their own
// accessor, QuantileResiduals.
func (d *DatasetDiagnostics) Residuals(kind fit.ResidualKind) ([]float64, error) {
	switch kind {
	case fit.ResidualDeviance:
		return d.devResMLE.Get(func() []float64 {
			return devianceResiduals(d.Sign(), d.PointDeviance)
		}), nil
	case fit.ResidualPearson:
		return d.pearResMLE.Get(func() []float64 {
			return d.pearsonMLE()
		}), nil
	case fit.ResidualQuantile:
		return nil, core.NewUnsupportedKindError(string(kind) + " (use QuantileResiduals)")
	default:
		return nil, core.NewUnsupportedKindError(string(kind))
	}
}

// QuantileResiduals returns the inverse-normal transform of the PIT. When
// randomize is set, each channel's PIT is drawn uniformly between its lower
// and upper values with the given seed, breaking the discreteness of
// counting statistics. A negative seed falls back to the diagnostics seed.
func (d *DatasetDiagnostics) QuantileResiduals(seed int64, randomize bool) QuantileResult {
	pitLower, pitUpper := d.PIT()

	if seed < 0 {
		seed = d.Seed
	}

	pit := pitUpper
	if randomize {
		rng := rand.New(rand.NewPCG(uint64(seed), pitStreamSalt))
		pit = make([]float64, len(pitUpper))
		for i := range pit {
			pit[i] = pitLower[i] + rng.Float64()*(pitUpper[i]-pitLower[i])
		}
	}

	n := len(pit)
	res := QuantileResult{
		R:            make([]float64, n),
		LowerClipped: make([]bool, n),
		UpperClipped: make([]bool, n),
	}
	for i, p := range pit {
		switch {
		case p == 0.0:
			res.R[i] = distuv.UnitNormal.Quantile(1.0 / float64(d.NSim))
			res.UpperClipped[i] = true
		case p == 1.0:
			res.R[i] = distuv.UnitNormal.Quantile(1.0 - 1.0/float64(d.NSim))
			res.LowerClipped[i] = true
		default:
			res.R[i] = distuv.UnitNormal.Quantile(p)
		}
	}
	return res
}

// ResidualsSim returns the replicate-aligned residual matrix over the
// current ensemble, or nil when no ensemble exists. Quantile residuals have
// no ensemble variant.
func (d *DatasetDiagnostics) ResidualsSim(kind fit.ResidualKind) ([][]float64, error) {
	switch kind {
	case fit.ResidualDeviance:
		return d.devResBoot.Get(d.ensembleDeps, func() [][]float64 {
			boot := d.Boot()
			if boot == nil {
				return nil
			}
			sign := d.SignEnsemble()
			dev := boot.Deviance.Point[d.Data.Name]
			out := make([][]float64, len(dev))
			for r := range dev {
				out[r] = devianceResiduals(sign[r], dev[r])
			}
			return out
		}), nil
	case fit.ResidualPearson:
		return d.pearResBoot.Get(d.ensembleDeps, func() [][]float64 {
			return d.pearsonEnsemble()
		}), nil
	case fit.ResidualQuantile:
		return nil, nil
	default:
		return nil, core.NewUnsupportedKindError(string(kind))
	}
}

// ResidualBands returns per-channel (lower, upper) bounds of the simulated
// residual distribution at confidence level cl, restricted to valid
// replicates. With withSign the band is the signed equal-tailed quantile
// band; otherwise it is the symmetric band from the cl quantile of |r|.
// Returns nils when no ensemble exists or the kind has no ensemble variant.
func (d *DatasetDiagnostics) ResidualBands(kind fit.ResidualKind, cl float64, withSign bool) ([]float64, []float64, error) {
	if cl <= 0 || cl >= 1 {
		return nil, nil, core.ErrBadConfidenceLevel
	}
	r, err := d.ResidualsSim(kind)
	if err != nil || r == nil {
		return nil, nil, err
	}
	boot := d.Boot()
	nchan := d.Data.NChan()
	lower := make([]float64, nchan)
	upper := make([]float64, nchan)
	for c := 0; c < nchan; c++ {
		col := validColumn(r, boot.Valid, c)
		if len(col) == 0 {
			return nil, nil, core.ErrEmptyEnsemble
		}
		if withSign {
			lo, errLo := montstats.Percentile(col, (0.5-cl/2)*100)
			up, errUp := montstats.Percentile(col, (0.5+cl/2)*100)
			if errLo != nil || errUp != nil {
				return nil, nil, core.ErrEmptyEnsemble
			}
			lower[c], upper[c] = lo, up
		} else {
			for i, v := range col {
				col[i] = math.Abs(v)
			}
			q, qerr := montstats.Percentile(col, cl*100)
			if qerr != nil {
				return nil, nil, core.ErrEmptyEnsemble
			}
			lower[c], upper[c] = -q, q
		}
	}
	return lower, upper, nil
}

// ModelBand returns per-channel (lower, upper) bounds of the ensemble's net
// model prediction at confidence level cl, or nils without an ensemble.
func (d *DatasetDiagnostics) ModelBand(cl float64) ([]float64, []float64, error) {
	if cl <= 0 || cl >= 1 {
		return nil, nil, core.ErrBadConfidenceLevel
	}
	boot := d.Boot()
	if boot == nil {
		return nil, nil, nil
	}
	modelOn := boot.ModelOn[d.Data.Name]
	nchan := d.Data.NChan()
	net := make([][]float64, len(modelOn))
	for r := range modelOn {
		if d.Data.Family.HasBackground() {
			net[r] = subtractScaled(modelOn[r], boot.ModelOff[d.Data.Name][r], d.Data.BackRatio)
		} else {
			net[r] = modelOn[r]
		}
	}
	lower := make([]float64, nchan)
	upper := make([]float64, nchan)
	for c := 0; c < nchan; c++ {
		col := validColumn(net, boot.Valid, c)
		if len(col) == 0 {
			return nil, nil, core.ErrEmptyEnsemble
		}
		lo, errLo := montstats.Percentile(col, (0.5-cl/2)*100)
		up, errUp := montstats.Percentile(col, (0.5+cl/2)*100)
		if errLo != nil || errUp != nil {
			return nil, nil, core.ErrEmptyEnsemble
		}
		lower[c], upper[c] = lo, up
	}
	return lower, upper, nil
}

// devianceResiduals combines the shared sign with the per-channel deviance
// contribution. With background present each contribution already sums the
// on/off pair, the background having been profiled out to ~1 dof per pair.
func devianceResiduals(sign, pointDeviance []float64) []float64 {
	r := make([]float64, len(sign))
	for i := range sign {
		r[i] = sign[i] * math.Sqrt(math.Max(pointDeviance[i], 0))
	}
	return r
}

func (d *DatasetDiagnostics) pearsonMLE() []float64 {
	data := d.Data
	r := pearsonOf(data.Counts, d.ModelOn, data.Errors, data.Family == fit.FamilyGaussian)
	if data.Family.HasBackground() {
		rOff := pearsonOf(data.BackCounts, d.ModelOff, data.BackErrors,
			data.Family == fit.FamilyPoissonGaussian)
		combinePearson(r, rOff, d.Sign())
	}
	return r
}

func (d *DatasetDiagnostics) pearsonEnsemble() [][]float64 {
	boot := d.Boot()
	if boot == nil {
		return nil
	}
	data := d.Data
	simOn := boot.SimOn[data.Name]
	modelOn := boot.ModelOn[data.Name]
	sign := d.SignEnsemble()
	out := make([][]float64, len(simOn))
	for rep := range simOn {
		r := pearsonOf(simOn[rep], modelOn[rep], data.Errors, data.Family == fit.FamilyGaussian)
		if data.Family.HasBackground() {
			rOff := pearsonOf(boot.SimOff[data.Name][rep], boot.ModelOff[data.Name][rep],
				data.BackErrors, data.Family == fit.FamilyPoissonGaussian)
			combinePearson(r, rOff, sign[rep])
		}
		out[rep] = r
	}
	return out
}

// pearsonOf computes (obs - model) / sigma, with sigma taken from the known
// errors when knownSigma is set and from the model-implied Poisson variance
// otherwise.
func pearsonOf(obs, model, sigma []float64, knownSigma bool) []float64 {
	r := make([]float64, len(obs))
	for i := range obs {
		sd := math.Sqrt(model[i])
		if knownSigma {
			sd = sigma[i]
		}
		r[i] = (obs[i] - model[i]) / sd
	}
	return r
}

// combinePearson folds the off residual into the on residual in quadrature
// under the shared sign, in place. One effective dof per on/off pair.
func combinePearson(r, rOff, sign []float64) {
	for i := range r {
		r[i] = sign[i] * math.Sqrt(r[i]*r[i]+rOff[i]*rOff[i])
	}
}

// validColumn extracts channel c across replicates, skipping invalid ones.
func validColumn(m [][]float64, valid []bool, c int) []float64 {
	col := make([]float64, 0, len(m))
	for r := range m {
		if valid != nil && !valid[r] {
			continue
		}
		col = append(col, m[r][c])
	}
	return col
}
