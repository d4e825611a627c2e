package fit

import (
	"math"
	"testing"
)

func twoParamEstimate() *PointEstimate {
	return &PointEstimate{
		Params: map[string]Param{
			"norm":  {Value: 1.2, Err: 0.1},
			"index": {Value: 2.0, Err: 0.3},
			"flux":  {Value: 3.5},
		},
		Groups: map[string]GroupStat{
			"det0": {Deviance: 48.0, NData: 50},
			"det1": {Deviance: 31.0, NData: 30},
		},
		TotalDeviance:  79.0,
		DoF:            78,
		Converged:      true,
		Unconstrained:  []float64{0.18, 2.0},
		FreeNames:      []string{"norm", "index"},
		CompositeNames: []string{"flux"},
	}
}

func TestNData(t *testing.T) {
	if n := twoParamEstimate().NData(); n != 80 {
		t.Errorf("NData = %d, want 80", n)
	}
}

func TestInformationCriteria(t *testing.T) {
	e := twoParamEstimate()
	// k=2, n=80: AICc = stat + 2k + 2k(k+1)/(n-k-1), BIC = stat + k ln n.
	wantAIC := 79.0 + 4 + 12.0/77.0
	wantBIC := 79.0 + 2*math.Log(80)
	if got := e.AIC(); math.Abs(got-wantAIC) > 1e-12 {
		t.Errorf("AIC = %g, want %g", got, wantAIC)
	}
	if got := e.BIC(); math.Abs(got-wantBIC) > 1e-12 {
		t.Errorf("BIC = %g, want %g", got, wantBIC)
	}
}

func TestNameClassification(t *testing.T) {
	e := twoParamEstimate()
	if !e.IsFree("norm") || e.IsFree("flux") || e.IsFree("nope") {
		t.Error("IsFree misclassifies")
	}
	if !e.IsComposite("flux") || e.IsComposite("norm") {
		t.Error("IsComposite misclassifies")
	}

	all := e.AllNames()
	want := []string{"norm", "index", "flux"}
	if len(all) != len(want) {
		t.Fatalf("AllNames = %v", all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("AllNames[%d] = %s, want %s (free first, then composite)", i, all[i], want[i])
		}
	}

	if e.FreeIndex("index") != 1 {
		t.Errorf("FreeIndex(index) = %d, want 1", e.FreeIndex("index"))
	}
	if e.FreeIndex("flux") != -1 {
		t.Errorf("FreeIndex(flux) = %d, want -1", e.FreeIndex("flux"))
	}
}

func TestBootstrapResultValidity(t *testing.T) {
	b := &BootstrapResult{
		N:      4,
		Params: map[string][]float64{"norm": {1.0, math.NaN(), 1.2, 1.1}},
		Deviance: BootDeviance{
			Total: []float64{80, math.NaN(), 95, 70},
			Group: map[string][]float64{"det0": {50, math.NaN(), 60, 40}},
		},
		Valid: []bool{true, false, true, true},
	}

	if b.NValid() != 3 {
		t.Errorf("NValid = %d, want 3", b.NValid())
	}

	vals := b.ValidParams("norm")
	if len(vals) != 3 {
		t.Fatalf("ValidParams length = %d, want 3", len(vals))
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			t.Error("ValidParams leaked an invalid replicate")
		}
	}
	if b.ValidParams("nope") != nil {
		t.Error("unknown parameter should yield nil")
	}
}

func TestBootstrapPValue(t *testing.T) {
	b := &BootstrapResult{
		Deviance: BootDeviance{
			Total: []float64{80, math.NaN(), 95, 70},
			Group: map[string][]float64{"det0": {50, math.NaN(), 60, 40}},
		},
		Valid: []bool{true, false, true, true},
	}

	// Valid totals are {80, 95, 70}; two are >= 79.
	if p := b.PValue("total", 79); math.Abs(p-2.0/3.0) > 1e-12 {
		t.Errorf("PValue(total, 79) = %g, want 2/3", p)
	}
	if p := b.PValue("det0", 55); math.Abs(p-1.0/3.0) > 1e-12 {
		t.Errorf("PValue(det0, 55) = %g, want 1/3", p)
	}
	if p := b.PValue("nope", 0); p != 0 {
		t.Errorf("PValue for unknown group = %g, want 0", p)
	}
}

func TestDatasetNet(t *testing.T) {
	d := &Dataset{
		Name:       "det",
		Family:     FamilyPoissonPoisson,
		Counts:     []float64{10, 20},
		BackCounts: []float64{4, 8},
		BackRatio:  0.5,
	}
	net := d.NetCounts()
	if net[0] != 8 || net[1] != 16 {
		t.Errorf("NetCounts = %v, want [8 16]", net)
	}

	plain := &Dataset{Family: FamilyPoisson, Counts: []float64{1, 2}}
	if got := plain.NetCounts(); &got[0] != &plain.Counts[0] {
		t.Error("without background, NetCounts must be the counts slice itself")
	}

	p := Prediction{On: []float64{10, 20}, Off: []float64{4, 8}}
	netModel := p.NetModel(0.5, true)
	if netModel[0] != 8 || netModel[1] != 16 {
		t.Errorf("NetModel = %v, want [8 16]", netModel)
	}
}

func TestFamilyProperties(t *testing.T) {
	cases := []struct {
		family     StatisticFamily
		name       string
		background bool
		discrete   bool
		monteCarlo bool
	}{
		{FamilyGaussian, "gaussian", false, false, false},
		{FamilyPoisson, "poisson", false, true, false},
		{FamilyPoissonGaussian, "poisson-gaussian", true, true, true},
		{FamilyPoissonPoisson, "poisson-poisson", true, true, true},
	}
	for _, c := range cases {
		if c.family.String() != c.name {
			t.Errorf("%v.String() = %q, want %q", c.family, c.family.String(), c.name)
		}
		if c.family.HasBackground() != c.background {
			t.Errorf("%s: HasBackground = %v", c.name, c.family.HasBackground())
		}
		if c.family.Discrete() != c.discrete {
			t.Errorf("%s: Discrete = %v", c.name, c.family.Discrete())
		}
		if c.family.MonteCarloPIT() != c.monteCarlo {
			t.Errorf("%s: MonteCarloPIT = %v", c.name, c.family.MonteCarloPIT())
		}
	}
}
