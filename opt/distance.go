package opt

import (
	"fmt"
	"math"
)

// CombineMode selects how per-dimension distance contributions are combined.
// Both modes are true metrics (symmetry, identity, triangle inequality),
// since each per-dimension contribution is itself a metric.
type CombineMode string

const (
	// CombineWeightedSum is the weighted sum of per-dimension contributions,
	// sum(w_i * d_i). This is the reference behavior and the default: the
	// contribution of a single mismatching dimension equals its configured
	// weight, and distances range over [0, sum(weights)].
	CombineWeightedSum CombineMode = "weighted-sum"
	// CombineEuclidean combines contributions as sqrt(sum(w_i * d_i^2)).
	CombineEuclidean CombineMode = "euclidean"
)

// validCombineModes maps combine modes to validity. Unexported to prevent mutation.
var validCombineModes = map[CombineMode]bool{
	CombineWeightedSum: true,
	CombineEuclidean:   true,
}

// IsValidCombineMode returns true if mode is recognized.
func IsValidCombineMode(mode CombineMode) bool { return validCombineModes[mode] }

// DistanceConfig is the configuration knob for the distance metric.
// Weights are per-variable; variables without an entry get weight 1.
type DistanceConfig struct {
	Mode    CombineMode
	Weights map[string]float64
}

// DefaultDistanceConfig returns uniform weights with the Gower-style
// weighted-sum combination.
func DefaultDistanceConfig() DistanceConfig {
	return DistanceConfig{Mode: CombineWeightedSum}
}

// DistanceMetric computes the mixed numeric/categorical distance between
// candidates of one DecisionSpace. One primitive serves both uses: pairwise
// batch diversity and nearest-training-point novelty.
//
// Per-dimension contributions:
//   - numeric: |p-q| normalized by the variable's declared range, clamped
//     to [0,1]; a zero-width range contributes 0.
//   - categorical: 0 on equal level, 1 on mismatch.
//
// See CombineMode for how contributions combine; weights are applied as
// configured, with no renormalization.
type DistanceMetric struct {
	space   *DecisionSpace
	cfg     DistanceConfig
	weights []float64 // aligned with space.Variables
}

// NewDistanceMetric builds a metric over the given space. Fails on an
// unknown combine mode, a weight for an undeclared variable, or a
// non-positive/non-finite weight.
func NewDistanceMetric(space *DecisionSpace, cfg DistanceConfig) (*DistanceMetric, error) {
	if cfg.Mode == "" {
		cfg.Mode = CombineWeightedSum
	}
	if !IsValidCombineMode(cfg.Mode) {
		return nil, fmt.Errorf("unknown distance combine mode %q (valid: %s, %s)", cfg.Mode, CombineWeightedSum, CombineEuclidean)
	}
	for name, w := range cfg.Weights {
		if _, ok := space.Variable(name); !ok {
			return nil, fmt.Errorf("distance weight for undeclared variable %q", name)
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("distance weight for %q must be a finite positive number, got %v", name, w)
		}
	}

	m := &DistanceMetric{
		space:   space,
		cfg:     cfg,
		weights: make([]float64, len(space.Variables)),
	}
	for i, v := range space.Variables {
		w := 1.0
		if cw, ok := cfg.Weights[v.Name]; ok {
			w = cw
		}
		m.weights[i] = w
	}
	return m, nil
}

// Distance returns the combined distance between p and q: >= 0, symmetric,
// and zero iff p and q agree on every compared dimension.
func (m *DistanceMetric) Distance(p, q Candidate) float64 {
	acc := 0.0
	for i, v := range m.space.Variables {
		d := m.contribution(v, p, q)
		if m.cfg.Mode == CombineEuclidean {
			acc += m.weights[i] * d * d
		} else {
			acc += m.weights[i] * d
		}
	}
	if m.cfg.Mode == CombineEuclidean {
		return math.Sqrt(acc)
	}
	return acc
}

// MinDistanceTo returns the distance from c to the nearest point in refs.
// Returns +Inf for an empty reference set (nothing to be near to).
func (m *DistanceMetric) MinDistanceTo(c Candidate, refs []Candidate) float64 {
	minD := math.Inf(1)
	for _, r := range refs {
		if d := m.Distance(c, r); d < minD {
			minD = d
		}
	}
	return minD
}

// MinPairwise returns the smallest pairwise distance within members.
// ok is false when fewer than two members exist.
func (m *DistanceMetric) MinPairwise(members []Candidate) (float64, bool) {
	if len(members) < 2 {
		return 0, false
	}
	minD := math.Inf(1)
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if d := m.Distance(members[i], members[j]); d < minD {
				minD = d
			}
		}
	}
	return minD, true
}

// contribution computes the [0,1] per-dimension distance term.
func (m *DistanceMetric) contribution(v DecisionVariable, p, q Candidate) float64 {
	if v.Kind == KindCategorical {
		pl, okP := p.Level(v.Name)
		ql, okQ := q.Level(v.Name)
		if !okP || !okQ {
			return 0 // dimension absent on one side: not compared
		}
		if pl == ql {
			return 0
		}
		return 1
	}

	pv, okP := p.NumericValue(v.Name)
	qv, okQ := q.NumericValue(v.Name)
	if !okP || !okQ {
		return 0
	}
	r := v.Range()
	if r == 0 {
		return 0
	}
	d := math.Abs(pv-qv) / r
	return math.Min(d, 1)
}
