// Package interval computes confidence and credible intervals for fitted and
// composite parameters, by profile likelihood or parametric bootstrap.
package interval

import (
	"math"
	"sort"

	montstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gofitdiag/adapters/stats/bootstrap"
	"gofitdiag/domain/core"
	"gofitdiag/domain/fit"
	"gofitdiag/internal"
	"gofitdiag/ports"
)

// Estimator dispatches interval requests to the profile-likelihood or
// bootstrap method. Both methods fill the same value object shape.
type Estimator struct {
	transform ports.ParameterTransform
	minimizer ports.Minimizer
	boot      *bootstrap.Engine

	// PenaltyScale is the composite-parameter penalty bandwidth.
	PenaltyScale float64
	// MaxEval caps nuisance re-optimizations per profile side.
	MaxEval int
}

// NewEstimator creates an interval estimator around the given collaborators.
func NewEstimator(transform ports.ParameterTransform, minimizer ports.Minimizer, boot *bootstrap.Engine) *Estimator {
	return &Estimator{
		transform:    transform,
		minimizer:    minimizer,
		boot:         boot,
		PenaltyScale: DefaultPenaltyScale,
		MaxEval:      defaultMaxEval,
	}
}

// Interval computes intervals for the requested parameters at the given
// confidence level. cl in (0,1) is a probability mass; cl >= 1 is a number
// of standard deviations, converted to the symmetric normal mass. params
// nil requests every parameter. n is the bootstrap replicate count (0 for
// the default) and is ignored by the profile method.
func (e *Estimator) Interval(estimate *fit.PointEstimate, params []string, cl float64, method fit.Method, n int) (*fit.ConfidenceInterval, error) {
	if !estimate.Converged {
		return nil, core.ErrNotConverged
	}
	if len(params) == 0 {
		params = estimate.AllNames()
	}
	if err := validateNames(params, estimate); err != nil {
		return nil, err
	}
	clProb, err := NormalizeLevel(cl)
	if err != nil {
		return nil, err
	}

	mle := make(map[string]float64, len(params))
	for _, name := range params {
		mle[name] = estimate.Params[name].Value
	}

	switch method {
	case fit.MethodProfile:
		return e.profileIntervals(estimate, params, mle, cl, clProb)
	case fit.MethodBoot:
		return e.bootIntervals(estimate, params, mle, clProb, n)
	default:
		return nil, core.NewUnsupportedMethodError(string(method))
	}
}

// NormalizeLevel converts a confidence level given either as a probability
// in (0,1) or as a number of standard deviations (>= 1) into a probability
// mass, via 1 - 2*Phi_bar(sigma).
func NormalizeLevel(cl float64) (float64, error) {
	if cl <= 0 {
		return 0, core.ErrBadConfidenceLevel
	}
	if cl >= 1 {
		return 1 - 2*distuv.UnitNormal.Survival(cl), nil
	}
	return cl, nil
}

func validateNames(params []string, estimate *fit.PointEstimate) error {
	var unknown []string
	for _, name := range params {
		if !estimate.IsFree(name) && !estimate.IsComposite(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &core.UnknownParameterError{Names: unknown}
	}
	return nil
}

func (e *Estimator) profileIntervals(estimate *fit.PointEstimate, params []string, mle map[string]float64, cl, clProb float64) (*fit.ConfidenceInterval, error) {
	// Asymptotic chi-square-with-1-dof law for the profiled deviance excess.
	delta := distuv.ChiSquared{K: 1}.Quantile(clProb)

	prof := &profiler{minimizer: e.minimizer, maxEval: e.MaxEval}
	interval := make(map[string]fit.Bounds, len(params))
	errBounds := make(map[string]fit.Bounds, len(params))
	status := make(map[string]fit.ProfileStatus, len(params))

	for _, name := range params {
		if estimate.IsFree(name) {
			dim := estimate.FreeIndex(name)
			out := prof.run(e.transform.Deviance, estimate.Unconstrained, dim, estimate.TotalDeviance, delta)
			if out.Status.NewMin.Lower || out.Status.NewMin.Upper {
				internal.DefaultLogger.Warn("[IntervalEstimator] profile of %s found a point below the reported minimum", name)
			}

			// Back-transform the unconstrained bounds to physical units,
			// holding every other free parameter at its MLE coordinates.
			lo := e.paramAt(estimate, dim, out.Lower, name)
			up := e.paramAt(estimate, dim, out.Upper, name)
			interval[name] = fit.Bounds{Lower: lo, Upper: up}
			errBounds[name] = fit.Bounds{Lower: lo - mle[name], Upper: up - mle[name]}
			status[name] = out.Status
			continue
		}

		out, err := e.profileComposite(estimate, name, mle[name], delta)
		if err != nil {
			return nil, err
		}
		interval[name] = fit.Bounds{Lower: out.Lower, Upper: out.Upper}
		errBounds[name] = fit.Bounds{Lower: out.Lower - mle[name], Upper: out.Upper - mle[name]}
		status[name] = out.Status
	}

	return &fit.ConfidenceInterval{
		MLE:           mle,
		Interval:      interval,
		Error:         errBounds,
		CL:            clProb,
		Method:        fit.MethodProfile,
		ProfileStatus: status,
	}, nil
}

func (e *Estimator) paramAt(estimate *fit.PointEstimate, dim int, t float64, name string) float64 {
	x := make([]float64, len(estimate.Unconstrained))
	copy(x, estimate.Unconstrained)
	x[dim] = t
	return e.transform.ToParams(x)[name]
}

// profileComposite applies the penalty trick: minimize the augmented loss
// from scratch so the auxiliary coordinate settles at the composite value,
// then profile that coordinate like a free parameter.
func (e *Estimator) profileComposite(estimate *fit.PointEstimate, name string, mleValue, delta float64) (profileOutcome, error) {
	value := func(theta []float64) float64 {
		return e.transform.ToParams(theta)[name]
	}
	loss := AugmentedLoss(e.transform.Deviance, value, e.PenaltyScale)

	init := make([]float64, 0, len(estimate.Unconstrained)+1)
	init = append(init, mleValue)
	init = append(init, estimate.Unconstrained...)

	res, err := e.minimizer.Minimize(loss, init)
	if err != nil {
		return profileOutcome{}, err
	}
	if !res.Converged {
		return profileOutcome{}, core.ErrNotConverged
	}

	prof := &profiler{minimizer: e.minimizer, maxEval: e.MaxEval}
	return prof.run(loss, res.X, 0, res.F, delta), nil
}

func (e *Estimator) bootIntervals(estimate *fit.PointEstimate, params []string, mle map[string]float64, clProb float64, n int) (*fit.ConfidenceInterval, error) {
	result, err := e.boot.Bootstrap(estimate, n)
	if err != nil {
		return nil, err
	}

	interval := make(map[string]fit.Bounds, len(params))
	errBounds := make(map[string]fit.Bounds, len(params))
	for _, name := range params {
		vals := result.ValidParams(name)
		if len(vals) == 0 {
			return nil, core.ErrEmptyEnsemble
		}
		lo, errLo := montstats.Percentile(vals, (0.5-clProb/2)*100)
		up, errUp := montstats.Percentile(vals, (0.5+clProb/2)*100)
		if errLo != nil || errUp != nil {
			return nil, core.ErrEmptyEnsemble
		}
		interval[name] = fit.Bounds{Lower: lo, Upper: up}
		errBounds[name] = fit.Bounds{Lower: lo - mle[name], Upper: up - mle[name]}
	}

	return &fit.ConfidenceInterval{
		MLE:        mle,
		Interval:   interval,
		Error:      errBounds,
		CL:         clProb,
		Method:     fit.MethodBoot,
		BootStatus: &fit.BootStatus{N: result.N, NValid: result.NValid()},
	}, nil
}

// Credible computes credible intervals from posterior draws: equal-tailed
// quantiles, or the highest-density interval when hdi is set. prob follows
// the same probability-or-sigma convention as Interval.
func (e *Estimator) Credible(draws fit.PosteriorDraws, params []string, prob float64, hdi bool) (*fit.CredibleInterval, error) {
	probMass, err := NormalizeLevel(prob)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		params = make([]string, 0, len(draws))
		for name := range draws {
			params = append(params, name)
		}
		sort.Strings(params)
	}

	var unknown []string
	for _, name := range params {
		if _, ok := draws[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, &core.UnknownParameterError{Names: unknown}
	}

	median := make(map[string]float64, len(params))
	interval := make(map[string]fit.Bounds, len(params))
	for _, name := range params {
		vals := draws[name]
		med, medErr := montstats.Median(vals)
		if medErr != nil {
			return nil, core.ErrEmptyEnsemble
		}
		median[name] = med

		if hdi {
			lo, up := hdiBounds(vals, probMass)
			interval[name] = fit.Bounds{Lower: lo, Upper: up}
			continue
		}
		lo, errLo := montstats.Percentile(vals, (0.5-probMass/2)*100)
		up, errUp := montstats.Percentile(vals, (0.5+probMass/2)*100)
		if errLo != nil || errUp != nil {
			return nil, core.ErrEmptyEnsemble
		}
		interval[name] = fit.Bounds{Lower: lo, Upper: up}
	}

	return &fit.CredibleInterval{
		Median:   median,
		Interval: interval,
		Prob:     probMass,
		HDI:      hdi,
	}, nil
}

// hdiBounds finds the narrowest window over the sorted draws containing the
// requested probability mass.
func hdiBounds(vals []float64, prob float64) (float64, float64) {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	n := len(sorted)
	m := int(math.Ceil(prob * float64(n)))
	if m < 1 {
		m = 1
	}
	if m > n {
		m = n
	}

	bestLo, bestUp := sorted[0], sorted[n-1]
	bestWidth := math.Inf(1)
	for i := 0; i+m-1 < n; i++ {
		width := sorted[i+m-1] - sorted[i]
		if width < bestWidth {
			bestWidth = width
			bestLo, bestUp = sorted[i], sorted[i+m-1]
		}
	}
	return bestLo, bestUp
}
