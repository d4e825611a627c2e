package interval

import (
	"math"

	"gofitdiag/domain/fit"
	"gofitdiag/ports"
)

const (
	// defaultMaxEval caps the number of nuisance re-optimizations per
	// interval side.
	defaultMaxEval = 200
	// bracketLimit bounds the outward bracket expansion, in units of the
	// initial step, before the search reports an at-limit condition.
	bracketLimit = 1 << 16
	// crossTol is the relative tolerance on the deviance excess at the
	// reported crossing.
	crossTol = 1e-4
)

// profiler finds, for one coordinate of a loss surface, the two points where
// the profiled loss (all other coordinates re-optimized) exceeds its minimum
// by delta.
type profiler struct {
	minimizer ports.Minimizer
	maxEval   int
}

type profileOutcome struct {
	Lower  float64
	Upper  float64
	Status fit.ProfileStatus
}

// run searches both sides of x[dim]. fmin is the loss at the minimum x;
// target crossings are at fmin + delta.
func (p *profiler) run(loss func([]float64) float64, x []float64, dim int, fmin, delta float64) profileOutcome {
	var out profileOutcome
	lower, lowerStatus := p.searchSide(loss, x, dim, fmin, delta, -1)
	upper, upperStatus := p.searchSide(loss, x, dim, fmin, delta, +1)
	out.Lower = lower
	out.Upper = upper
	out.Status = fit.ProfileStatus{
		Valid:     fit.SideFlags{Lower: lowerStatus.valid, Upper: upperStatus.valid},
		AtLimit:   fit.SideFlags{Lower: lowerStatus.atLimit, Upper: upperStatus.atLimit},
		AtMaxEval: fit.SideFlags{Lower: lowerStatus.atMaxEval, Upper: upperStatus.atMaxEval},
		NewMin:    fit.SideFlags{Lower: lowerStatus.newMin, Upper: upperStatus.newMin},
	}
	return out
}

type sideStatus struct {
	valid     bool
	atLimit   bool
	atMaxEval bool
	newMin    bool
}

// searchSide brackets the crossing by doubling an outward step from the
// minimum, then bisects. direction is -1 for the lower side, +1 for upper.
func (p *profiler) searchSide(loss func([]float64) float64, x []float64, dim int, fmin, delta float64, direction float64) (float64, sideStatus) {
	var st sideStatus
	evals := 0
	newMinTol := 1e-8 * (1 + math.Abs(fmin))

	profiled := func(t float64) float64 {
		evals++
		f := p.profiledLoss(loss, x, dim, t)
		if f < fmin-newMinTol {
			st.newMin = true
		}
		return f
	}

	center := x[dim]
	step := math.Max(math.Abs(center)*0.01, 1e-2)
	target := fmin + delta

	// Bracket: walk outward until the profiled loss exceeds the target.
	inner := center
	outer := center
	bracketed := false
	for mult := 1.0; mult <= bracketLimit; mult *= 2 {
		if evals >= p.maxEval {
			st.atMaxEval = true
			return outer, st
		}
		t := center + direction*step*mult
		if profiled(t) >= target {
			outer = t
			bracketed = true
			break
		}
		inner = t
		outer = t
	}
	if !bracketed {
		st.atLimit = true
		return outer, st
	}

	// Bisect between the last sub-target point and the first over-target
	// point until the crossing is located to tolerance.
	lo, hi := inner, outer
	var mid float64
	for {
		if evals >= p.maxEval {
			st.atMaxEval = true
			return 0.5 * (lo + hi), st
		}
		mid = 0.5 * (lo + hi)
		f := profiled(mid)
		if math.Abs(f-target) <= crossTol*delta {
			st.valid = true
			return mid, st
		}
		if f < target {
			lo = mid
		} else {
			hi = mid
		}
		if math.Abs(hi-lo) <= 1e-10*(1+math.Abs(center)) {
			st.valid = true
			return mid, st
		}
	}
}

// profiledLoss fixes coordinate dim at t and re-optimizes the remaining
// coordinates from the minimum as the starting point. A one-dimensional
// loss has nothing to re-optimize.
func (p *profiler) profiledLoss(loss func([]float64) float64, x []float64, dim int, t float64) float64 {
	if len(x) == 1 {
		return loss([]float64{t})
	}

	reduced := func(y []float64) float64 {
		return loss(embed(y, dim, t))
	}
	init := exclude(x, dim)
	res, err := p.minimizer.Minimize(reduced, init)
	if err != nil {
		return math.Inf(1)
	}
	return res.F
}

// embed inserts value t at position dim of the reduced vector y.
func embed(y []float64, dim int, t float64) []float64 {
	full := make([]float64, len(y)+1)
	copy(full[:dim], y[:dim])
	full[dim] = t
	copy(full[dim+1:], y[dim:])
	return full
}

// exclude removes position dim from x.
func exclude(x []float64, dim int) []float64 {
	out := make([]float64, 0, len(x)-1)
	out = append(out, x[:dim]...)
	out = append(out, x[dim+1:]...)
	return out
}
