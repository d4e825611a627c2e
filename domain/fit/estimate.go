package fit

import "math"

// Param is a named parameter's point estimate and standard error.
type Param struct {
	Value float64
	Err   float64
}

// GroupStat is the per-group goodness-of-fit summary.
type GroupStat struct {
	Deviance float64
	NData    int
}

// DevianceInfo is the deviance decomposition at one parameter point: the
// total statistic, the per-group statistic, and the per-channel contribution
// within each group.
type DevianceInfo struct {
	Total float64
	Group map[string]float64
	Point map[string][]float64
}

// PointEstimate is the converged fit result this engine analyses. It is
// immutable once constructed; everything derived from it (intervals,
// bootstrap ensembles, diagnostics) lives elsewhere.
type PointEstimate struct {
	// Params maps every parameter name (free and composite) to its physical
	// value and standard error.
	Params map[string]Param
	// Groups maps each dataset name to its deviance contribution and size.
	Groups map[string]GroupStat
	// PointDeviance holds the per-channel deviance decomposition per group.
	PointDeviance map[string][]float64
	// TotalDeviance is the statistic at the minimum.
	TotalDeviance float64
	// DoF is the fit's degrees of freedom.
	DoF int
	// Converged reports whether the optimizer signalled a valid minimum.
	Converged bool

	// Unconstrained holds the MLE coordinates in the optimizer's
	// unconstrained space, aligned with FreeNames.
	Unconstrained []float64
	// FreeNames are the directly-optimized parameters, in optimizer order.
	FreeNames []string
	// CompositeNames are derived parameters, pure functions of the free ones.
	CompositeNames []string

	// Seed is the reproducibility seed attached to the fit; bootstrap
	// ensembles derived from this estimate inherit it.
	Seed int64
}

// NData returns the total number of data points across groups.
func (p *PointEstimate) NData() int {
	n := 0
	for _, g := range p.Groups {
		n += g.NData
	}
	return n
}

// AIC returns the Akaike information criterion with small-sample correction.
func (p *PointEstimate) AIC() float64 {
	k := float64(len(p.FreeNames))
	n := float64(p.NData())
	return p.TotalDeviance + 2*k + 2*k*(k+1)/(n-k-1)
}

// BIC returns the Bayesian information criterion.
func (p *PointEstimate) BIC() float64 {
	k := float64(len(p.FreeNames))
	return p.TotalDeviance + k*math.Log(float64(p.NData()))
}

// IsFree reports whether name is a directly-optimized parameter.
func (p *PointEstimate) IsFree(name string) bool {
	for _, f := range p.FreeNames {
		if f == name {
			return true
		}
	}
	return false
}

// IsComposite reports whether name is a derived parameter.
func (p *PointEstimate) IsComposite(name string) bool {
	for _, c := range p.CompositeNames {
		if c == name {
			return true
		}
	}
	return false
}

// AllNames returns every known parameter name, free first then composite.
func (p *PointEstimate) AllNames() []string {
	names := make([]string, 0, len(p.FreeNames)+len(p.CompositeNames))
	names = append(names, p.FreeNames...)
	names = append(names, p.CompositeNames...)
	return names
}

// FreeIndex returns the position of a free parameter in the unconstrained
// coordinate vector, or -1 when the name is not free.
func (p *PointEstimate) FreeIndex(name string) int {
	for i, f := range p.FreeNames {
		if f == name {
			return i
		}
	}
	return -1
}
