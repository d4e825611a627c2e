package fit

// Dataset is one named sub-dataset of binned count data with an optional
// background measurement. All slices are per-channel and share one length.
// The fields are references to the loader's arrays, never copies.
type Dataset struct {
	Name   string
	Family StatisticFamily

	// Counts holds the observed on-measurement counts. For FamilyGaussian
	// these are the (background-subtracted) net counts.
	Counts []float64
	// Errors holds known per-channel errors. Only set for FamilyGaussian.
	Errors []float64

	// BackCounts / BackErrors hold the off-measurement counts and, for
	// FamilyPoissonGaussian, their Gaussian errors. Nil without background.
	BackCounts []float64
	BackErrors []float64
	// BackRatio is the on/off scaling (exposure) ratio applied to the off
	// measurement when subtracting it from the on measurement.
	BackRatio float64
}

// NChan returns the number of channels.
func (d *Dataset) NChan() int {
	return len(d.Counts)
}

// NetCounts returns the background-subtracted counts. For families without
// background this is the observed counts slice itself.
func (d *Dataset) NetCounts() []float64 {
	if !d.Family.HasBackground() {
		return d.Counts
	}
	net := make([]float64, len(d.Counts))
	for i, c := range d.Counts {
		net[i] = c - d.BackRatio*d.BackCounts[i]
	}
	return net
}

// Prediction is the model-implied expected counts for one dataset at a given
// parameter point: the on-measurement expectation and, when the statistic
// family has background, the off-measurement expectation.
type Prediction struct {
	On  []float64
	Off []float64
}

// NetModel returns the model-implied net counts matching NetCounts.
func (p Prediction) NetModel(ratio float64, hasBackground bool) []float64 {
	if !hasBackground {
		return p.On
	}
	net := make([]float64, len(p.On))
	for i, m := range p.On {
		net[i] = m - ratio*p.Off[i]
	}
	return net
}
