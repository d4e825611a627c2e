package fit

// StatisticFamily is the combination of signal/background noise models that
// governs which PIT and residual formulas apply to a dataset. It is a closed
// set: every computation site switches exhaustively over these four values.
type StatisticFamily int

const (
	// FamilyGaussian is Gaussian measurement noise with known per-channel
	// errors and no separate background measurement.
	FamilyGaussian StatisticFamily = iota
	// FamilyPoisson is pure Poisson counting noise without background.
	FamilyPoisson
	// FamilyPoissonGaussian is Poisson signal counts on top of a background
	// measured with Gaussian errors.
	FamilyPoissonGaussian
	// FamilyPoissonPoisson is Poisson signal counts with a background that is
	// itself a Poisson-measured off observation.
	FamilyPoissonPoisson
)

func (f StatisticFamily) String() string {
	switch f {
	case FamilyGaussian:
		return "gaussian"
	case FamilyPoisson:
		return "poisson"
	case FamilyPoissonGaussian:
		return "poisson-gaussian"
	case FamilyPoissonPoisson:
		return "poisson-poisson"
	default:
		return "unknown"
	}
}

// HasBackground reports whether the family carries an off (background)
// measurement alongside the on measurement.
func (f StatisticFamily) HasBackground() bool {
	return f == FamilyPoissonGaussian || f == FamilyPoissonPoisson
}

// Discrete reports whether the PIT of the family has distinct lower and upper
// values per channel (discrete or Monte-Carlo-estimated distributions).
func (f StatisticFamily) Discrete() bool {
	return f != FamilyGaussian
}

// MonteCarloPIT reports whether the family's PIT is estimated by simulation
// rather than evaluated in closed form.
func (f StatisticFamily) MonteCarloPIT() bool {
	return f == FamilyPoissonGaussian || f == FamilyPoissonPoisson
}
