package fit

// Method selects the interval estimation method.
type Method string

const (
	// MethodProfile builds asymptotic intervals from the profile likelihood.
	MethodProfile Method = "profile"
	// MethodBoot builds intervals from parametric bootstrap quantiles.
	MethodBoot Method = "boot"
)

// Bounds is a (lower, upper) pair, either absolute interval bounds or signed
// errors relative to the point estimate.
type Bounds struct {
	Lower float64
	Upper float64
}

// SideFlags is a boolean condition reported separately for the lower and
// upper interval search.
type SideFlags struct {
	Lower bool
	Upper bool
}

// ProfileStatus is the per-parameter status block of a profile-likelihood
// interval search.
type ProfileStatus struct {
	// Valid reports whether each side's crossing search converged
	// numerically.
	Valid SideFlags
	// AtLimit reports whether the search ran into a parameter limit.
	AtLimit SideFlags
	// AtMaxEval reports whether the search exhausted its evaluation budget.
	AtMaxEval SideFlags
	// NewMin reports whether a point with a deviance below the reported
	// minimum was found during the search. When set, the point estimate may
	// not be the global optimum.
	NewMin SideFlags
}

// BootStatus is the status block of a bootstrap interval.
type BootStatus struct {
	N      int
	NValid int
}

// ConfidenceInterval is the value object returned by interval estimation.
// Exactly one of ProfileStatus or BootStatus is populated, matching Method.
type ConfidenceInterval struct {
	MLE      map[string]float64
	Interval map[string]Bounds
	// Error holds signed errors relative to the point estimate: Lower is
	// non-positive, Upper non-negative for a well-behaved interval.
	Error  map[string]Bounds
	CL     float64
	Method Method

	ProfileStatus map[string]ProfileStatus
	BootStatus    *BootStatus
}

// PosteriorDraws is a flattened (chain x draw) collection of posterior
// parameter samples, keyed by parameter name. All slices share one length.
type PosteriorDraws map[string][]float64

// CredibleInterval is the Bayesian counterpart of ConfidenceInterval,
// computed from posterior draws.
type CredibleInterval struct {
	Median   map[string]float64
	Interval map[string]Bounds
	Prob     float64
	// HDI reports whether Interval is the highest-density interval rather
	// than the equal-tailed one.
	HDI bool
}

// ResidualKind selects the residual definition.
type ResidualKind string

const (
	ResidualDeviance ResidualKind = "deviance"
	ResidualPearson  ResidualKind = "pearson"
	ResidualQuantile ResidualKind = "quantile"
)
