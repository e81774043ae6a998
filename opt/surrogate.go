package opt

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrSurrogateUnavailable marks any failure of the external surrogate model:
// the adapter returned an error or a malformed shape. The run aborts without
// partial scoring, since a partially-scored pool would break the ranking
// invariant.
var ErrSurrogateUnavailable = errors.New("surrogate unavailable")

// Surrogate is the thin interface to an externally trained response model.
// Predict is batched across the whole candidate pool in one call and must be
// a side-effect-free query: same candidates, same predictions.
//
// stds may be nil for models without uncertainty (e.g. plain ensembles); the
// scorer then uses its deterministic zero-sigma path uniformly.
type Surrogate interface {
	Predict(candidates []Candidate) (means []float64, stds []float64, err error)
}

// UncertaintyMode selects how prediction uncertainty is obtained.
type UncertaintyMode string

const (
	// UncertaintyNative uses the stds the surrogate reports; absent stds
	// fall back to zero.
	UncertaintyNative UncertaintyMode = "native"
	// UncertaintyDeterministic forces all stds to zero regardless of what
	// the surrogate reports.
	UncertaintyDeterministic UncertaintyMode = "deterministic"
	// UncertaintyApprox synthesizes stds from the spread of the predicted
	// means (MAD around the median), for models with no native uncertainty.
	UncertaintyApprox UncertaintyMode = "approx"
)

// validUncertaintyModes maps modes to validity. Unexported to prevent mutation.
var validUncertaintyModes = map[UncertaintyMode]bool{
	UncertaintyNative:        true,
	UncertaintyDeterministic: true,
	UncertaintyApprox:        true,
}

// IsValidUncertaintyMode returns true if mode is recognized.
func IsValidUncertaintyMode(mode UncertaintyMode) bool { return validUncertaintyModes[mode] }

// approxEpsilon is the floor applied to synthesized stds so the approx mode
// never produces an exactly-zero sigma.
const approxEpsilon = 1e-6

// PredictWithUncertainty invokes the surrogate once for the whole pool and
// returns (means, stds) aligned by position, with stds resolved per the
// chosen mode. Any adapter error or shape mismatch is wrapped in
// ErrSurrogateUnavailable.
func PredictWithUncertainty(model Surrogate, candidates []Candidate, mode UncertaintyMode) ([]float64, []float64, error) {
	if !IsValidUncertaintyMode(mode) {
		return nil, nil, fmt.Errorf("unknown uncertainty mode %q", mode)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	means, stds, err := model.Predict(candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSurrogateUnavailable, err)
	}
	if len(means) != len(candidates) {
		return nil, nil, fmt.Errorf("%w: predict returned %d means for %d candidates", ErrSurrogateUnavailable, len(means), len(candidates))
	}
	if stds != nil && len(stds) != len(candidates) {
		return nil, nil, fmt.Errorf("%w: predict returned %d stds for %d candidates", ErrSurrogateUnavailable, len(stds), len(candidates))
	}
	for i, m := range means {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, nil, fmt.Errorf("%w: non-finite mean %v at index %d", ErrSurrogateUnavailable, m, i)
		}
	}

	n := len(candidates)
	switch mode {
	case UncertaintyDeterministic:
		return means, make([]float64, n), nil
	case UncertaintyNative:
		out := make([]float64, n)
		for i := range out {
			if stds != nil && stds[i] > 0 {
				out[i] = stds[i]
			}
		}
		return means, out, nil
	default: // UncertaintyApprox
		return means, approxStds(means), nil
	}
}

// approxStds synthesizes per-candidate uncertainty from the spread of the
// predicted means: distance from the median in MAD units, scaled by a
// quarter of the sample standard deviation and floored at approxEpsilon.
// A crude proxy, but stable and monotone in |mean - median|.
func approxStds(means []float64) []float64 {
	n := len(means)
	med := median(means)

	dev := make([]float64, n)
	for i, m := range means {
		dev[i] = math.Abs(m - med)
	}
	mad := median(dev)
	if mad == 0 {
		mad = approxEpsilon
	}

	scale := 0.25 * stat.StdDev(means, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = 0.25
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = math.Max(dev[i]/mad*scale, approxEpsilon)
	}
	return out
}

// median returns the empirical median of values.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// ConstantSurrogate predicts the same mean and std for every candidate.
// Useful for smoke tests and dry runs of the selection pipeline.
type ConstantSurrogate struct {
	Mean float64
	Std  float64
}

func (s ConstantSurrogate) Predict(candidates []Candidate) ([]float64, []float64, error) {
	means := make([]float64, len(candidates))
	var stds []float64
	if s.Std > 0 {
		stds = make([]float64, len(candidates))
	}
	for i := range candidates {
		means[i] = s.Mean
		if stds != nil {
			stds[i] = s.Std
		}
	}
	return means, stds, nil
}

// FuncSurrogate adapts a pure prediction function to the Surrogate interface.
// Return std < 0 from Fn to report no uncertainty for the whole pool.
type FuncSurrogate struct {
	Fn func(c Candidate) (mean, std float64)
}

func (s FuncSurrogate) Predict(candidates []Candidate) ([]float64, []float64, error) {
	means := make([]float64, len(candidates))
	stds := make([]float64, len(candidates))
	hasStd := true
	for i, c := range candidates {
		m, sd := s.Fn(c)
		means[i] = m
		if sd < 0 {
			hasStd = false
			continue
		}
		stds[i] = sd
	}
	if !hasStd {
		stds = nil
	}
	return means, stds, nil
}
