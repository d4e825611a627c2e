package fit

import (
	"gofitdiag/domain/core"
)

// BootDeviance is the replicate-aligned deviance decomposition of a
// bootstrap run: Total[i] is replicate i's total statistic, Group[g][i] its
// per-group statistic, Point[g][i] its per-channel contributions.
type BootDeviance struct {
	Total []float64
	Group map[string][]float64
	Point map[string][][]float64
}

// BootstrapResult is a parametric bootstrap ensemble. It is owned by the
// point estimate it was derived from and is replaced wholesale (new object,
// same owner) whenever the (n, seed) configuration changes. Downstream
// diagnostics key their caches on the identity of this object.
//
// All replicate-indexed fields are aligned: index i refers to the same
// simulated dataset, refit, and validity flag everywhere.
type BootstrapResult struct {
	ID        core.RunID
	CreatedAt core.Timestamp
	N         int
	Seed      int64

	// MLE holds the originating unconstrained coordinates by free name.
	MLE map[string]float64

	// SimOn / SimOff hold the simulated datasets: group name to an
	// [n][nchan] matrix of on / off counts. SimOff only has entries for
	// groups whose statistic family carries background.
	SimOn  map[string][][]float64
	SimOff map[string][][]float64

	// ModelOn / ModelOff hold the refit model predictions per replicate,
	// with the same shape as SimOn / SimOff.
	ModelOn  map[string][][]float64
	ModelOff map[string][][]float64

	// Params maps every parameter name to its n replicate refit values in
	// physical units. Composite parameters are included: the refit produces
	// physical values for every replicate.
	Params map[string][]float64

	// Deviance holds the refit statistic per replicate.
	Deviance BootDeviance

	// Valid flags replicates whose refit signalled convergence. Failed
	// replicates stay in the arrays; they are excluded from quantile and
	// p-value computations, never silently dropped from the record.
	Valid []bool
}

// NValid returns the number of replicates whose refit converged.
func (b *BootstrapResult) NValid() int {
	n := 0
	for _, v := range b.Valid {
		if v {
			n++
		}
	}
	return n
}

// ValidParams returns the replicate values of one parameter restricted to
// valid replicates.
func (b *BootstrapResult) ValidParams(name string) []float64 {
	all, ok := b.Params[name]
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(all))
	for i, v := range all {
		if b.Valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// PValue returns the fraction of valid replicates whose deviance for the
// named group ("total" for the whole fit) is at least the observed value.
// This is exactly the comparison the replicate deviances are scaled for;
// any richer posterior-predictive statistic is a caller concern.
func (b *BootstrapResult) PValue(group string, observed float64) float64 {
	var dev []float64
	if group == "total" {
		dev = b.Deviance.Total
	} else {
		dev = b.Deviance.Group[group]
	}
	if len(dev) == 0 {
		return 0
	}
	extreme, valid := 0, 0
	for i, d := range dev {
		if !b.Valid[i] {
			continue
		}
		valid++
		if d >= observed {
			extreme++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(extreme) / float64(valid)
}

// PPCResult is the posterior-predictive check counterpart of
// BootstrapResult. Only the contract shape is defined; the concrete
// predictive statistic is an open question upstream.
type PPCResult struct {
	ID       core.RunID
	N        int
	Seed     int64
	SimOn    map[string][][]float64
	SimOff   map[string][][]float64
	ModelOn  map[string][][]float64
	ModelOff map[string][][]float64
	Deviance BootDeviance
	Valid    []bool
}
