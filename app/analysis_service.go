// Package app provides the top-level fit-result facade tying interval
// estimation, bootstrap ensembles, and per-dataset diagnostics together.
package app

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gofitdiag/adapters/stats/bootstrap"
	"gofitdiag/adapters/stats/diag"
	"gofitdiag/adapters/stats/interval"
	"gofitdiag/domain/core"
	"gofitdiag/domain/fit"
	"gofitdiag/internal/config"
	"gofitdiag/ports"
)

// AnalysisService exposes calibrated uncertainty statements and
// goodness-of-fit diagnostics for one converged fit. It owns the point
// estimate and the (lazily built) bootstrap ensemble; the per-dataset
// diagnostics collection is reconstructed on access with fresh caches over
// the same backing data.
type AnalysisService struct {
	estimate  *fit.PointEstimate
	datasets  []*fit.Dataset
	transform ports.ParameterTransform
	intervals *interval.Estimator
	boot      *bootstrap.Engine

	// nsim overrides the Monte-Carlo PIT sample count when positive.
	nsim int
	// replicates is the default bootstrap ensemble size for n <= 0 requests.
	replicates int
}

// NewAnalysisService wires the engines around one point estimate with the
// built-in defaults.
func NewAnalysisService(estimate *fit.PointEstimate, datasets []*fit.Dataset, transform ports.ParameterTransform, minimizer ports.Minimizer, refitter ports.Refitter) *AnalysisService {
	boot := bootstrap.NewEngine(transform, refitter, datasets, 0)
	return &AnalysisService{
		estimate:  estimate,
		datasets:  datasets,
		transform: transform,
		intervals: interval.NewEstimator(transform, minimizer, boot),
		boot:      boot,
	}
}

// NewAnalysisServiceWithConfig wires the engines with environment-derived
// tuning applied: worker count, default replicates, PIT sample count, and
// the profile search knobs.
func NewAnalysisServiceWithConfig(cfg *config.Config, estimate *fit.PointEstimate, datasets []*fit.Dataset, transform ports.ParameterTransform, minimizer ports.Minimizer, refitter ports.Refitter) *AnalysisService {
	boot := bootstrap.NewEngine(transform, refitter, datasets, cfg.Bootstrap.Workers)
	intervals := interval.NewEstimator(transform, minimizer, boot)
	intervals.PenaltyScale = cfg.Interval.PenaltyScale
	intervals.MaxEval = cfg.Interval.MaxEval
	return &AnalysisService{
		estimate:   estimate,
		datasets:   datasets,
		transform:  transform,
		intervals:  intervals,
		boot:       boot,
		nsim:       cfg.Diagnostics.NSim,
		replicates: cfg.Bootstrap.Replicates,
	}
}

// Estimate returns the underlying point estimate.
func (s *AnalysisService) Estimate() *fit.PointEstimate {
	return s.estimate
}

// Interval computes confidence intervals; see interval.Estimator.Interval.
func (s *AnalysisService) Interval(params []string, cl float64, method fit.Method, n int) (*fit.ConfidenceInterval, error) {
	return s.intervals.Interval(s.estimate, params, cl, method, n)
}

// Credible computes credible intervals from externally supplied posterior
// draws; see interval.Estimator.Credible.
func (s *AnalysisService) Credible(draws fit.PosteriorDraws, params []string, prob float64, hdi bool) (*fit.CredibleInterval, error) {
	return s.intervals.Credible(draws, params, prob, hdi)
}

// Bootstrap returns the parametric bootstrap ensemble, computing it on first
// request and returning the identical cached object while the configuration
// is unchanged.
func (s *AnalysisService) Bootstrap(n int) (*fit.BootstrapResult, error) {
	if n <= 0 && s.replicates > 0 {
		n = s.replicates
	}
	return s.boot.Bootstrap(s.estimate, n)
}

// Diagnostics builds the per-dataset diagnostics collection. Each call
// returns fresh instances (empty caches) over the same backing data; the
// instances track the engine's current ensemble by identity, so diagnostics
// computed after a new bootstrap run recompute exactly once.
func (s *AnalysisService) Diagnostics() (map[string]*diag.DatasetDiagnostics, error) {
	preds := s.transform.Predict(s.estimate.Unconstrained)
	out := make(map[string]*diag.DatasetDiagnostics, len(s.datasets))
	for _, d := range s.datasets {
		pred, ok := preds[d.Name]
		if !ok {
			return nil, core.NewMissingDatasetError(d.Name)
		}
		dd := diag.New(
			d,
			pred,
			s.estimate.PointDeviance[d.Name],
			s.estimate.Seed,
			s.boot.Cached,
		)
		if s.nsim > 0 {
			dd.NSim = s.nsim
		}
		out[d.Name] = dd
	}
	return out, nil
}

// PValues compares each group's observed deviance (and the total) against
// the bootstrap replicate deviances.
func (s *AnalysisService) PValues(n int) (map[string]float64, error) {
	boot, err := s.Bootstrap(n)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(s.estimate.Groups)+1)
	for name, g := range s.estimate.Groups {
		out[name] = boot.PValue(name, g.Deviance)
	}
	out["total"] = boot.PValue("total", s.estimate.TotalDeviance)
	return out, nil
}

// Summary renders a plain-text report of the fit: parameters with errors,
// per-group statistics, and the information criteria.
func (s *AnalysisService) Summary() string {
	var b strings.Builder

	names := s.estimate.AllNames()
	b.WriteString("Parameters:\n")
	for _, name := range names {
		p := s.estimate.Params[name]
		fmt.Fprintf(&b, "  %-16s %.4g +/- %.4g\n", name, p.Value, p.Err)
	}

	groups := make([]string, 0, len(s.estimate.Groups))
	for name := range s.estimate.Groups {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	b.WriteString("\nStatistic:\n")
	for _, name := range groups {
		g := s.estimate.Groups[name]
		fmt.Fprintf(&b, "  %s: stat=%.2f, ndata=%d\n", name, g.Deviance, g.NData)
	}
	fmt.Fprintf(&b, "  Total: stat/dof=%.2f (%.2f/%d)\n",
		s.estimate.TotalDeviance/float64(s.estimate.DoF),
		s.estimate.TotalDeviance, s.estimate.DoF)
	fmt.Fprintf(&b, "AIC: %.2f\nBIC: %.2f\n", s.estimate.AIC(), s.estimate.BIC())

	return b.String()
}

// FormatInterval renders "mid -lower +upper" with the given number of
// significant decimals, switching to scaled notation when the midpoint's
// magnitude leaves the [1e-1, 1e2) window.
func FormatInterval(mid, lower, upper float64, precision int) string {
	if precision <= 0 {
		precision = 2
	}
	lo := lower - mid
	up := upper - mid

	exp := math.Log10(math.Abs(mid))
	if mid != 0 && (exp <= -1 || exp >= 2) {
		scale := math.Pow(10, math.Floor(exp))
		return fmt.Sprintf("%.*f %+.*f %+.*f x 1e%d",
			precision, mid/scale, precision, lo/scale, precision, up/scale,
			int(math.Floor(exp)))
	}
	return fmt.Sprintf("%.*f %+.*f %+.*f", precision, mid, precision, lo, precision, up)
}
