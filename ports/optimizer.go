package ports

import (
	"gofitdiag/domain/fit"
)

// ParameterTransform maps the optimizer's unconstrained coordinates to named
// physical parameters and evaluates the fit statistic. It is supplied by the
// model-building layer; this engine never constructs one.
type ParameterTransform interface {
	// ToParams converts unconstrained coordinates to every physical
	// parameter value, composite parameters included.
	ToParams(unconstrained []float64) map[string]float64

	// Deviance evaluates the total fit statistic at the given coordinates.
	Deviance(unconstrained []float64) float64

	// DevianceInfo evaluates the statistic together with its per-group and
	// per-channel decomposition.
	DevianceInfo(unconstrained []float64) fit.DevianceInfo

	// Predict returns the model-implied expected counts per dataset at the
	// given coordinates.
	Predict(unconstrained []float64) map[string]fit.Prediction
}

// MinimizeResult is the outcome of one minimization.
type MinimizeResult struct {
	X         []float64
	F         float64
	Converged bool
	NEval     int
}

// Minimizer minimizes a scalar objective from an initial point in
// unconstrained space. Implementations are external; the engine uses it to
// re-optimize nuisance parameters during profiling and to fit augmented
// objectives for composite parameters.
type Minimizer interface {
	Minimize(loss func([]float64) float64, init []float64) (MinimizeResult, error)
}

// RefitResult is the outcome of refitting one simulated replicate.
type RefitResult struct {
	Unconstrained []float64
	// Params holds every physical parameter at the refit optimum.
	Params map[string]float64
	// Predictions holds the model-implied expected counts at the refit
	// optimum, keyed by dataset name.
	Predictions map[string]fit.Prediction
	// Deviance is the statistic decomposition at the refit optimum, scaled
	// consistently with the point estimate's statistic definition.
	Deviance fit.DevianceInfo
	// Converged reports whether the refit signalled convergence.
	Converged bool
}

// ReplicateData is one simulated replicate dataset handed to a Refitter:
// per-group on counts and, for background families, off counts.
type ReplicateData struct {
	On  map[string][]float64
	Off map[string][]float64
}

// Refitter refits a single simulated replicate starting from the original
// MLE unconstrained coordinates. Replicates are mutually independent; the
// engine calls Refit concurrently and the implementation must not share
// mutable state across calls.
type Refitter interface {
	Refit(data ReplicateData, init []float64) (RefitResult, error)
}
