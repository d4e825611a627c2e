package interval

// DefaultPenaltyScale is the bandwidth of the quadratic penalty tying the
// auxiliary coordinate to the composite parameter value. It is a tunable,
// not a derived quantity: tighten it when optimization diagnostics show the
// constraint is not binding tightly enough.
const DefaultPenaltyScale = 1e-3

// AugmentedLoss builds the penalty-constrained objective used to profile a
// composite parameter. The augmented coordinate vector is [x0, theta...]:
// x0 is an auxiliary free scalar and theta the original unconstrained
// coordinates. The quadratic penalty ((value(theta)/x0 - 1) / scale)^2
// forces x0 to track the composite value at the optimum, after which x0 can
// be profiled exactly like a directly-optimized parameter.
func AugmentedLoss(deviance func([]float64) float64, value func([]float64) float64, scale float64) func([]float64) float64 {
	if scale <= 0 {
		scale = DefaultPenaltyScale
	}
	return func(x []float64) float64 {
		theta := x[1:]
		diff := (value(theta)/x[0] - 1) / scale
		return deviance(theta) + diff*diff
	}
}
