// Package bootstrap generates parametric bootstrap ensembles: n synthetic
// datasets drawn from the fitted model, each refit from the original MLE,
// with per-replicate parameters, deviances, and validity flags.
package bootstrap

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"gofitdiag/domain/core"
	"gofitdiag/domain/fit"
	"gofitdiag/internal"
	"gofitdiag/ports"
)

// DefaultReplicates is the replicate count when the caller does not choose.
const DefaultReplicates = 10000

// Engine runs the simulate-and-refit loop. Replicate refits are mutually
// independent and run under a weighted semaphore; the shared initial-guess
// vector is the only state crossing replicate boundaries, read-only.
type Engine struct {
	transform ports.ParameterTransform
	refitter  ports.Refitter
	datasets  []*fit.Dataset
	workers   int64

	cached    *fit.BootstrapResult
	cachedFor *fit.PointEstimate
}

// NewEngine creates a bootstrap engine. workers <= 0 selects one worker per
// logical CPU.
func NewEngine(transform ports.ParameterTransform, refitter ports.Refitter, datasets []*fit.Dataset, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		transform: transform,
		refitter:  refitter,
		datasets:  datasets,
		workers:   int64(workers),
	}
}

// Cached returns the last computed ensemble, or nil. Diagnostics track the
// identity of this pointer to invalidate their derived quantities.
func (e *Engine) Cached() *fit.BootstrapResult {
	return e.cached
}

// Bootstrap returns the ensemble for the given configuration. When the
// estimate, n, and the seed match the cached run, the identical cached
// object is returned untouched; otherwise the ensemble is recomputed from
// scratch and replaces the cache. The cache is keyed on the estimate's
// identity, not its values, so a fresh fit never inherits a stale ensemble.
func (e *Engine) Bootstrap(estimate *fit.PointEstimate, n int) (*fit.BootstrapResult, error) {
	if !estimate.Converged {
		return nil, core.ErrNotConverged
	}
	if n <= 0 {
		n = DefaultReplicates
	}
	if c := e.cached; c != nil && e.cachedFor == estimate && c.N == n && c.Seed == estimate.Seed {
		return c, nil
	}

	preds := e.transform.Predict(estimate.Unconstrained)
	sim := simulate(e.datasets, preds, estimate.Seed, n)

	result := e.newResult(estimate, sim, n)
	e.refitAll(result, sim, estimate, n)

	internal.DefaultLogger.Info("[BootstrapEngine] run %s complete: n=%d n_valid=%d seed=%d",
		result.ID, n, result.NValid(), estimate.Seed)

	e.cached = result
	e.cachedFor = estimate
	return result, nil
}

func (e *Engine) newResult(estimate *fit.PointEstimate, sim simulation, n int) *fit.BootstrapResult {
	mle := make(map[string]float64, len(estimate.FreeNames))
	for i, name := range estimate.FreeNames {
		mle[name] = estimate.Unconstrained[i]
	}

	result := &fit.BootstrapResult{
		ID:        core.NewRunID(),
		CreatedAt: core.Now(),
		N:         n,
		Seed:      estimate.Seed,
		MLE:       mle,
		SimOn:     sim.on,
		SimOff:    sim.off,
		ModelOn:   make(map[string][][]float64, len(e.datasets)),
		ModelOff:  make(map[string][][]float64),
		Params:    make(map[string][]float64),
		Deviance: fit.BootDeviance{
			Total: make([]float64, n),
			Group: make(map[string][]float64, len(e.datasets)),
			Point: make(map[string][][]float64, len(e.datasets)),
		},
		Valid: make([]bool, n),
	}

	for _, name := range estimate.AllNames() {
		result.Params[name] = make([]float64, n)
	}
	for _, d := range e.datasets {
		result.ModelOn[d.Name] = make([][]float64, n)
		if d.Family.HasBackground() {
			result.ModelOff[d.Name] = make([][]float64, n)
		}
		result.Deviance.Group[d.Name] = make([]float64, n)
		result.Deviance.Point[d.Name] = make([][]float64, n)
	}
	return result
}

// refitAll refits every replicate concurrently. Each goroutine writes only
// its own replicate index, so no synchronization beyond the semaphore and
// wait group is needed. Individual refit failures are recorded as invalid
// replicates and never abort the batch.
func (e *Engine) refitAll(result *fit.BootstrapResult, sim simulation, estimate *fit.PointEstimate, n int) {
	sem := semaphore.NewWeighted(e.workers)
	var wg sync.WaitGroup
	ctx := context.Background()

	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			e.refitOne(result, sim, estimate, i)
		}(i)
	}
	wg.Wait()
}

func (e *Engine) refitOne(result *fit.BootstrapResult, sim simulation, estimate *fit.PointEstimate, i int) {
	data := ports.ReplicateData{
		On:  make(map[string][]float64, len(e.datasets)),
		Off: make(map[string][]float64),
	}
	for _, d := range e.datasets {
		data.On[d.Name] = sim.on[d.Name][i]
		if d.Family.HasBackground() {
			data.Off[d.Name] = sim.off[d.Name][i]
		}
	}

	refit, err := e.refitter.Refit(data, estimate.Unconstrained)
	if err != nil || !refit.Converged {
		e.markInvalid(result, i)
		return
	}

	result.Valid[i] = true
	for name, v := range refit.Params {
		if slot, ok := result.Params[name]; ok {
			slot[i] = v
		}
	}
	result.Deviance.Total[i] = refit.Deviance.Total
	for _, d := range e.datasets {
		result.Deviance.Group[d.Name][i] = refit.Deviance.Group[d.Name]
		result.Deviance.Point[d.Name][i] = refit.Deviance.Point[d.Name]
		pred := refit.Predictions[d.Name]
		result.ModelOn[d.Name][i] = pred.On
		if d.Family.HasBackground() {
			result.ModelOff[d.Name][i] = pred.Off
		}
	}
}

// markInvalid fills replicate i with NaN so the arrays stay aligned and
// shaped; the validity flag excludes it from downstream statistics.
func (e *Engine) markInvalid(result *fit.BootstrapResult, i int) {
	result.Valid[i] = false
	for _, slot := range result.Params {
		slot[i] = math.NaN()
	}
	result.Deviance.Total[i] = math.NaN()
	for _, d := range e.datasets {
		nchan := d.NChan()
		result.Deviance.Group[d.Name][i] = math.NaN()
		result.Deviance.Point[d.Name][i] = nanSlice(nchan)
		result.ModelOn[d.Name][i] = nanSlice(nchan)
		if d.Family.HasBackground() {
			result.ModelOff[d.Name][i] = nanSlice(nchan)
		}
	}
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
