package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doe-optimizer/doe-optimizer/opt"
)

// VariableConfig describes one decision variable in problem.yaml.
type VariableConfig struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Min    float64  `yaml:"min"`
	Max    float64  `yaml:"max"`
	Levels []string `yaml:"levels"`
	Unit   string   `yaml:"unit"`
}

// ConstraintConfig describes one hard constraint in problem.yaml.
// Type selects which fields apply: compare (left/right/relation),
// linear-sum (variables/relation/bound), lock (variable/value),
// allowed-levels (variable/allowed).
type ConstraintConfig struct {
	ID        string   `yaml:"id"`
	Type      string   `yaml:"type"`
	Left      string   `yaml:"left"`
	Right     string   `yaml:"right"`
	Relation  string   `yaml:"relation"`
	Variables []string `yaml:"variables"`
	Bound     float64  `yaml:"bound"`
	Variable  string   `yaml:"variable"`
	Value     float64  `yaml:"value"`
	Allowed   []string `yaml:"allowed"`
}

// SafetyLimitConfig is an absolute per-variable process limit.
type SafetyLimitConfig struct {
	Variable string   `yaml:"variable"`
	Low      *float64 `yaml:"low"`
	High     *float64 `yaml:"high"`
}

// SafetyConfig groups the novelty hull band and the safety limits.
type SafetyConfig struct {
	MinTrainingDistance float64             `yaml:"min_training_distance"`
	MaxTrainingDistance *float64            `yaml:"max_training_distance"`
	Limits              []SafetyLimitConfig `yaml:"limits"`
}

// SettingsConfig mirrors opt.Settings in problem.yaml. Zero values fall back
// to the engine defaults.
type SettingsConfig struct {
	Acquisition          string             `yaml:"acquisition"`
	BatchSize            int                `yaml:"batch_size"`
	PoolSize             int                `yaml:"pool_size"`
	Seed                 int64              `yaml:"seed"`
	UCBKappa             float64            `yaml:"ucb_kappa"`
	UncertaintyMode      string             `yaml:"uncertainty_mode"`
	MinDiversityDistance float64            `yaml:"min_diversity_distance"`
	MaxRetries           int                `yaml:"max_retries"`
	HighSigma            float64            `yaml:"high_sigma"`
	DistanceMode         string             `yaml:"distance_mode"`
	DistanceWeights      map[string]float64 `yaml:"distance_weights"`
}

// SurrogateConfig selects the built-in surrogate used by the CLI dry-run
// path. Real deployments implement opt.Surrogate against a trained model.
type SurrogateConfig struct {
	Kind string  `yaml:"kind"` // "constant"
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// ProblemConfig represents the full problem.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ProblemConfig struct {
	Version           string             `yaml:"version"`
	Objective         string             `yaml:"objective"`
	IncumbentBest     float64            `yaml:"incumbent_best"`
	Variables         []VariableConfig   `yaml:"variables"`
	Constraints       []ConstraintConfig `yaml:"constraints"`
	Safety            SafetyConfig       `yaml:"safety"`
	TrainingReference []map[string]any   `yaml:"training_reference"`
	Settings          SettingsConfig     `yaml:"settings"`
	Surrogate         SurrogateConfig    `yaml:"surrogate"`
}

// LoadProblem parses a problem.yaml with strict field checking, so a typo in
// a field name is an error naming the field rather than a silent default.
func LoadProblem(path string) (*ProblemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem file: %w", err)
	}
	var cfg ProblemConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse problem YAML: %w", err)
	}
	return &cfg, nil
}

// BuildSpace converts the parsed problem into an opt.DecisionSpace.
// Structural validation (bounds, references) stays with DecisionSpace.Validate;
// this only maps shapes and rejects unknown constraint types.
func (p *ProblemConfig) BuildSpace() (*opt.DecisionSpace, error) {
	space := &opt.DecisionSpace{
		Objective: opt.Objective(p.Objective),
		Safety:    opt.DefaultSafetyThresholds(),
	}

	for _, v := range p.Variables {
		space.Variables = append(space.Variables, opt.DecisionVariable{
			Name:   v.Name,
			Kind:   opt.VarKind(v.Kind),
			Min:    v.Min,
			Max:    v.Max,
			Levels: v.Levels,
			Unit:   v.Unit,
		})
	}

	for _, c := range p.Constraints {
		switch c.Type {
		case "compare":
			space.Constraints = append(space.Constraints, opt.CompareConstraint{
				Name: c.ID, Left: c.Left, Right: c.Right, Relation: opt.Relation(c.Relation),
			})
		case "linear-sum":
			space.Constraints = append(space.Constraints, opt.LinearSumConstraint{
				Name: c.ID, Vars: c.Variables, Relation: opt.Relation(c.Relation), Bound: c.Bound,
			})
		case "lock":
			space.Constraints = append(space.Constraints, opt.LockConstraint{
				Name: c.ID, Variable: c.Variable, Value: c.Value,
			})
		case "allowed-levels":
			space.Constraints = append(space.Constraints, opt.AllowedLevelsConstraint{
				Name: c.ID, Variable: c.Variable, Allowed: c.Allowed,
			})
		default:
			return nil, fmt.Errorf("constraint %q: unknown type %q", c.ID, c.Type)
		}
	}

	space.Safety.MinTrainingDistance = p.Safety.MinTrainingDistance
	if p.Safety.MaxTrainingDistance != nil {
		space.Safety.MaxTrainingDistance = *p.Safety.MaxTrainingDistance
	}
	for _, lim := range p.Safety.Limits {
		low, high := math.Inf(-1), math.Inf(1)
		if lim.Low != nil {
			low = *lim.Low
		}
		if lim.High != nil {
			high = *lim.High
		}
		space.Safety.Limits = append(space.Safety.Limits, opt.SafetyLimit{
			Variable: lim.Variable, Low: low, High: high,
		})
	}

	return space, nil
}

// BuildTrainingReference converts the YAML reference rows into candidates,
// typed against the declared variables.
func (p *ProblemConfig) BuildTrainingReference(space *opt.DecisionSpace) ([]opt.Candidate, error) {
	refs := make([]opt.Candidate, 0, len(p.TrainingReference))
	for i, row := range p.TrainingReference {
		c := opt.NewCandidate()
		for name, raw := range row {
			v, ok := space.Variable(name)
			if !ok {
				return nil, fmt.Errorf("training_reference[%d]: undeclared variable %q", i, name)
			}
			if v.IsNumeric() {
				f, err := toFloat(raw)
				if err != nil {
					return nil, fmt.Errorf("training_reference[%d].%s: %w", i, name, err)
				}
				c.Numeric[name] = f
			} else {
				s, ok := raw.(string)
				if !ok {
					return nil, fmt.Errorf("training_reference[%d].%s: expected level string, got %T", i, name, raw)
				}
				c.Categorical[name] = s
			}
		}
		refs = append(refs, c)
	}
	return refs, nil
}

// BuildSettings merges problem-file settings over the engine defaults.
// Zero-valued fields keep the defaults; values are never silently clamped.
func (p *ProblemConfig) BuildSettings() (opt.Settings, error) {
	s := opt.DefaultSettings()
	sc := p.Settings

	if sc.Acquisition != "" {
		acq, err := opt.ParseAcquisition(sc.Acquisition)
		if err != nil {
			return s, err
		}
		s.Acquisition = acq
	}
	if sc.BatchSize != 0 {
		s.BatchSize = sc.BatchSize
	}
	if sc.PoolSize != 0 {
		s.PoolSize = sc.PoolSize
	}
	if sc.Seed != 0 {
		s.Seed = sc.Seed
	}
	if sc.UCBKappa != 0 {
		s.UCBKappa = sc.UCBKappa
	}
	if sc.UncertaintyMode != "" {
		s.UncertaintyMode = opt.UncertaintyMode(sc.UncertaintyMode)
	}
	if sc.MinDiversityDistance != 0 {
		s.MinDiversityDistance = sc.MinDiversityDistance
	}
	if sc.MaxRetries != 0 {
		s.MaxRetries = sc.MaxRetries
	}
	if sc.HighSigma != 0 {
		s.HighSigma = sc.HighSigma
	}
	if sc.DistanceMode != "" {
		s.Distance.Mode = opt.CombineMode(sc.DistanceMode)
	}
	if sc.DistanceWeights != nil {
		s.Distance.Weights = sc.DistanceWeights
	}
	return s, nil
}

// BuildSurrogate constructs the configured built-in surrogate.
func (p *ProblemConfig) BuildSurrogate() (opt.Surrogate, error) {
	switch p.Surrogate.Kind {
	case "", "constant":
		return opt.ConstantSurrogate{Mean: p.Surrogate.Mean, Std: p.Surrogate.Std}, nil
	default:
		return nil, fmt.Errorf("surrogate.kind: unknown %q (valid: constant)", p.Surrogate.Kind)
	}
}

// toFloat widens the numeric types yaml.v3 produces for untyped scalars.
func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}
