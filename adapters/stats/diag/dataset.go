package diag

import (
	"gofitdiag/domain/fit"
)

// DatasetDiagnostics derives goodness-of-fit quantities for one named
// dataset. It holds references to the fit's backing arrays, not copies, and
// memoizes derived quantities: point-estimate quantities forever, ensemble
// quantities against the identity of the current bootstrap result. The
// owning fit result rebuilds instances (fresh caches, same backing data) on
// access; an instance is used from a single goroutine.
type DatasetDiagnostics struct {
	Data *fit.Dataset

	// ModelOn / ModelOff are the point-estimate model predictions.
	ModelOn  []float64
	ModelOff []float64
	// PointDeviance is the per-channel deviance at the point estimate. With
	// background present each entry combines the on/off pair, the background
	// having been profiled out.
	PointDeviance []float64

	// Boot returns the owner's current bootstrap ensemble, or nil. The
	// returned pointer is the identity token for tracked caches: a newly
	// computed ensemble invalidates every quantity derived from it, exactly
	// once, even when its values are unchanged.
	Boot func() *fit.BootstrapResult

	Seed int64
	NSim int

	signMLE    Memo[[]float64]
	pitPair    Memo[[2][]float64]
	devResMLE  Memo[[]float64]
	pearResMLE Memo[[]float64]

	signBoot    Tracked[[][]float64]
	devResBoot  Tracked[[][]float64]
	pearResBoot Tracked[[][]float64]
}

// New builds diagnostics for one dataset. boot may be nil when no ensemble
// source exists; otherwise it must return the owner's current ensemble.
func New(data *fit.Dataset, pred fit.Prediction, pointDeviance []float64, seed int64, boot func() *fit.BootstrapResult) *DatasetDiagnostics {
	if boot == nil {
		boot = func() *fit.BootstrapResult { return nil }
	}
	return &DatasetDiagnostics{
		Data:          data,
		ModelOn:       pred.On,
		ModelOff:      pred.Off,
		PointDeviance: pointDeviance,
		Boot:          boot,
		Seed:          seed,
		NSim:          DefaultNSim,
	}
}

// ensembleDeps captures the identity of every upstream mutable result the
// tracked caches depend on.
func (d *DatasetDiagnostics) ensembleDeps() []any {
	return []any{d.Boot()}
}

// Sign returns the per-channel sign of the data-vs-model ordering at the
// point estimate: +1 where net counts >= net model (ties resolve to +1),
// -1 elsewhere.
func (d *DatasetDiagnostics) Sign() []float64 {
	return d.signMLE.Get(func() []float64 {
		net := d.Data.NetCounts()
		model := d.netModelMLE()
		return signOf(net, model)
	})
}

// SignEnsemble returns the replicate-aligned sign matrix over the current
// ensemble, or nil when no ensemble exists.
func (d *DatasetDiagnostics) SignEnsemble() [][]float64 {
	return d.signBoot.Get(d.ensembleDeps, func() [][]float64 {
		boot := d.Boot()
		if boot == nil {
			return nil
		}
		simOn := boot.SimOn[d.Data.Name]
		modelOn := boot.ModelOn[d.Data.Name]
		out := make([][]float64, len(simOn))
		for r := range simOn {
			net := simOn[r]
			model := modelOn[r]
			if d.Data.Family.HasBackground() {
				net = subtractScaled(simOn[r], boot.SimOff[d.Data.Name][r], d.Data.BackRatio)
				model = subtractScaled(modelOn[r], boot.ModelOff[d.Data.Name][r], d.Data.BackRatio)
			}
			out[r] = signOf(net, model)
		}
		return out
	})
}

// PIT returns the per-channel (lower, upper) probability integral transform
// at the point estimate. For continuous families the two slices are the same
// array. Monte-Carlo families draw from a stream derived from the
// diagnostics seed, so repeated calls are identical.
func (d *DatasetDiagnostics) PIT() (lower, upper []float64) {
	pair := d.pitPair.Get(func() [2][]float64 {
		data := d.Data
		switch data.Family {
		case fit.FamilyGaussian:
			p := pitGaussian(data.Counts, d.ModelOn, data.Errors)
			return [2][]float64{p, p}
		case fit.FamilyPoisson:
			lo, up := pitPoisson(data.Counts, d.ModelOn)
			return [2][]float64{lo, up}
		case fit.FamilyPoissonGaussian:
			p := pitPoissonGaussian(
				data.Counts, d.ModelOn,
				data.BackCounts, d.ModelOff, data.BackErrors,
				data.BackRatio, d.Seed+1, d.NSim,
			)
			return [2][]float64{p, p}
		case fit.FamilyPoissonPoisson:
			lo, up := pitPoissonPoisson(
				data.Counts, data.BackCounts,
				d.ModelOn, d.ModelOff,
				data.BackRatio, d.Seed+1, d.NSim,
			)
			return [2][]float64{lo, up}
		default:
			return [2][]float64{}
		}
	})
	return pair[0], pair[1]
}

func (d *DatasetDiagnostics) netModelMLE() []float64 {
	p := fit.Prediction{On: d.ModelOn, Off: d.ModelOff}
	return p.NetModel(d.Data.BackRatio, d.Data.Family.HasBackground())
}

func signOf(data, model []float64) []float64 {
	sign := make([]float64, len(data))
	for i := range data {
		if data[i] >= model[i] {
			sign[i] = 1.0
		} else {
			sign[i] = -1.0
		}
	}
	return sign
}

func subtractScaled(a, b []float64, ratio float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - ratio*b[i]
	}
	return out
}
