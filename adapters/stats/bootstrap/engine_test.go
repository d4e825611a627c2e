package bootstrap

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofitdiag/domain/core"
	"gofitdiag/domain/fit"
	"gofitdiag/ports"
)

// meanTransform models every channel of one Poisson dataset as a single
// shared rate mu, optimized directly (identity transform).
type meanTransform struct {
	nchan int
	name  string
}

func (m meanTransform) ToParams(u []float64) map[string]float64 {
	return map[string]float64{"mu": u[0]}
}

func (m meanTransform) Deviance(u []float64) float64 {
	return 0
}

func (m meanTransform) DevianceInfo(u []float64) fit.DevianceInfo {
	return fit.DevianceInfo{}
}

func (m meanTransform) Predict(u []float64) map[string]fit.Prediction {
	on := make([]float64, m.nchan)
	for i := range on {
		on[i] = u[0]
	}
	return map[string]fit.Prediction{m.name: {On: on}}
}

// meanRefitter refits mu as the sample mean of the replicate's counts. It
// fails replicates whose mean exceeds failAbove, and counts calls so tests
// can assert caching behavior.
type meanRefitter struct {
	transform meanTransform
	failAbove float64

	mu    sync.Mutex
	calls int
}

func (r *meanRefitter) Refit(data ports.ReplicateData, init []float64) (ports.RefitResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	on := data.On[r.transform.name]
	sum := 0.0
	for _, v := range on {
		sum += v
	}
	mu := sum / float64(len(on))
	if mu > r.failAbove {
		return ports.RefitResult{}, errors.New("refit diverged")
	}

	point := make([]float64, len(on))
	total := 0.0
	for i, v := range on {
		point[i] = (v - mu) * (v - mu) / math.Max(mu, 1e-12)
		total += point[i]
	}
	return ports.RefitResult{
		Unconstrained: []float64{mu},
		Params:        map[string]float64{"mu": mu},
		Predictions:   r.transform.Predict([]float64{mu}),
		Deviance: fit.DevianceInfo{
			Total: total,
			Group: map[string]float64{r.transform.name: total},
			Point: map[string][]float64{r.transform.name: point},
		},
		Converged: true,
	}, nil
}

func testFixture(failAbove float64) (*Engine, *meanRefitter, *fit.PointEstimate) {
	transform := meanTransform{nchan: 4, name: "det"}
	refitter := &meanRefitter{transform: transform, failAbove: failAbove}
	datasets := []*fit.Dataset{{
		Name:   "det",
		Family: fit.FamilyPoisson,
		Counts: []float64{9, 11, 10, 10},
	}}
	engine := NewEngine(transform, refitter, datasets, 4)
	estimate := &fit.PointEstimate{
		Params:        map[string]fit.Param{"mu": {Value: 10}},
		Converged:     true,
		Unconstrained: []float64{10},
		FreeNames:     []string{"mu"},
		Seed:          42,
	}
	return engine, refitter, estimate
}

func TestBootstrap_RequiresConvergedEstimate(t *testing.T) {
	engine, _, estimate := testFixture(math.Inf(1))
	estimate.Converged = false

	_, err := engine.Bootstrap(estimate, 10)
	require.ErrorIs(t, err, core.ErrNotConverged)
}

func TestBootstrap_ShapesAndValidity(t *testing.T) {
	engine, _, estimate := testFixture(math.Inf(1))

	res, err := engine.Bootstrap(estimate, 50)
	require.NoError(t, err)

	assert.Equal(t, 50, res.N)
	assert.Equal(t, estimate.Seed, res.Seed)
	assert.Equal(t, 10.0, res.MLE["mu"])
	assert.Len(t, res.SimOn["det"], 50)
	assert.Len(t, res.Params["mu"], 50)
	assert.Len(t, res.Deviance.Total, 50)
	assert.Len(t, res.Deviance.Point["det"], 50)
	assert.Equal(t, 50, res.NValid())

	for i := 0; i < 50; i++ {
		assert.Len(t, res.SimOn["det"][i], 4)
		assert.Len(t, res.ModelOn["det"][i], 4)
		assert.False(t, math.IsNaN(res.Params["mu"][i]))
	}
	// Poisson(10) draws should spread around the rate.
	for _, mu := range res.Params["mu"] {
		assert.InDelta(t, 10.0, mu, 8.0)
	}
}

func TestBootstrap_CacheReturnsIdenticalObject(t *testing.T) {
	engine, refitter, estimate := testFixture(math.Inf(1))

	first, err := engine.Bootstrap(estimate, 20)
	require.NoError(t, err)
	callsAfterFirst := refitter.calls

	again, err := engine.Bootstrap(estimate, 20)
	require.NoError(t, err)
	assert.Same(t, first, again, "matching n and seed must return the cached object")
	assert.Equal(t, callsAfterFirst, refitter.calls, "cache hit must not refit")
	assert.Same(t, first, engine.Cached())

	other, err := engine.Bootstrap(estimate, 30)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 30, other.N)
	assert.Same(t, other, engine.Cached())
}

func TestBootstrap_NewEstimateInvalidatesCache(t *testing.T) {
	engine, refitter, estimate := testFixture(math.Inf(1))

	first, err := engine.Bootstrap(estimate, 20)
	require.NoError(t, err)
	callsAfterFirst := refitter.calls

	// A refit can land on the same seed and replicate count; the stale
	// ensemble must not be handed back for it.
	refit := *estimate
	other, err := engine.Bootstrap(&refit, 20)
	require.NoError(t, err)
	assert.NotSame(t, first, other, "a different estimate must not reuse the cached ensemble")
	assert.Greater(t, refitter.calls, callsAfterFirst, "a different estimate must refit")
	assert.Same(t, other, engine.Cached())
}

func TestBootstrap_NewSeedInvalidatesCache(t *testing.T) {
	engine, _, estimate := testFixture(math.Inf(1))

	first, err := engine.Bootstrap(estimate, 20)
	require.NoError(t, err)

	estimate.Seed = 43
	second, err := engine.Bootstrap(estimate, 20)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int64(43), second.Seed)
}

func TestBootstrap_SameSeedSameDraws(t *testing.T) {
	a, _, estimate := testFixture(math.Inf(1))
	b, _, _ := testFixture(math.Inf(1))

	resA, err := a.Bootstrap(estimate, 25)
	require.NoError(t, err)
	resB, err := b.Bootstrap(estimate, 25)
	require.NoError(t, err)

	assert.Equal(t, resA.SimOn["det"], resB.SimOn["det"],
		"equal seeds must reproduce the simulated counts")
	assert.Equal(t, resA.Params["mu"], resB.Params["mu"])
}

func TestBootstrap_InvalidReplicatesNaNFilled(t *testing.T) {
	// Fail every replicate whose refit mean lands above the MLE rate; with a
	// symmetric sampling distribution roughly half the batch fails.
	engine, _, estimate := testFixture(10.0)

	res, err := engine.Bootstrap(estimate, 60)
	require.NoError(t, err)

	nValid := res.NValid()
	assert.Greater(t, nValid, 0)
	assert.Less(t, nValid, 60)

	for i, ok := range res.Valid {
		if ok {
			assert.False(t, math.IsNaN(res.Params["mu"][i]))
			continue
		}
		assert.True(t, math.IsNaN(res.Params["mu"][i]), "invalid replicate %d must be NaN", i)
		assert.True(t, math.IsNaN(res.Deviance.Total[i]))
		for _, v := range res.Deviance.Point["det"][i] {
			assert.True(t, math.IsNaN(v))
		}
	}

	valid := res.ValidParams("mu")
	assert.Len(t, valid, nValid)
	for _, v := range valid {
		assert.False(t, math.IsNaN(v))
	}
}

func TestBootstrap_PValue(t *testing.T) {
	engine, _, estimate := testFixture(math.Inf(1))

	res, err := engine.Bootstrap(estimate, 40)
	require.NoError(t, err)

	// Every simulated deviance is >= a -inf observed one, none >= +inf.
	assert.Equal(t, 1.0, res.PValue("total", math.Inf(-1)))
	assert.Equal(t, 0.0, res.PValue("det", math.Inf(1)))
	assert.Equal(t, 0.0, res.PValue("nosuch", 1.0), "unknown group has no extreme replicates")
}
