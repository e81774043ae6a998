package opt

import (
	"fmt"
	"math"
)

// VarKind distinguishes the three supported decision variable kinds.
type VarKind string

const (
	// KindContinuous is a real-valued variable with [Min, Max] bounds.
	KindContinuous VarKind = "continuous"
	// KindInteger is an integer variable with [Min, Max] bounds; sampled
	// values are snapped to the unit grid.
	KindInteger VarKind = "integer"
	// KindCategorical is a variable over a finite, non-empty level set.
	KindCategorical VarKind = "categorical"
)

// validVarKinds maps variable kinds to validity. Unexported to prevent mutation.
var validVarKinds = map[VarKind]bool{
	KindContinuous:  true,
	KindInteger:     true,
	KindCategorical: true,
}

// IsValidVarKind returns true if kind is a recognized variable kind.
func IsValidVarKind(kind VarKind) bool { return validVarKinds[kind] }

// DecisionVariable is one dimension of the decision space.
// Immutable once an optimization run starts.
type DecisionVariable struct {
	Name   string
	Kind   VarKind
	Min    float64  // numeric kinds only
	Max    float64  // numeric kinds only
	Levels []string // categorical only; non-empty
	Unit   string   // display label, e.g. "degC"; informational only
}

// IsNumeric reports whether the variable is continuous or integer.
func (v DecisionVariable) IsNumeric() bool {
	return v.Kind == KindContinuous || v.Kind == KindInteger
}

// Range returns Max-Min for numeric variables, 0 otherwise.
func (v DecisionVariable) Range() float64 {
	if !v.IsNumeric() {
		return 0
	}
	return v.Max - v.Min
}

// Objective is the optimization direction for the response.
type Objective string

const (
	// Maximize treats larger observed responses as better.
	Maximize Objective = "maximize"
	// Minimize treats smaller observed responses as better.
	Minimize Objective = "minimize"
)

// IsValidObjective returns true for a recognized objective direction.
func IsValidObjective(o Objective) bool { return o == Maximize || o == Minimize }

// SafetyLimit is an absolute per-variable process limit. A candidate is
// safety-flagged (SafetyOK=false) when its value falls outside [Low, High].
// Use math.Inf for one-sided limits.
type SafetyLimit struct {
	Variable string
	Low      float64
	High     float64
}

// SafetyThresholds groups the safety and novelty ("hull") bounds of a space.
//
// MinTrainingDistance / MaxTrainingDistance bound the allowed distance from a
// candidate to its nearest training-reference point: closer than Min is
// redundant, farther than Max is extrapolation risk. Both drive NoveltyOK,
// never a hard drop. Limits drive SafetyOK.
type SafetyThresholds struct {
	MinTrainingDistance float64
	MaxTrainingDistance float64
	Limits              []SafetyLimit
}

// DefaultSafetyThresholds returns thresholds that flag nothing: a zero-width
// lower hull bound and an unbounded upper hull bound, with no limits.
func DefaultSafetyThresholds() SafetyThresholds {
	return SafetyThresholds{
		MinTrainingDistance: 0,
		MaxTrainingDistance: math.Inf(1),
	}
}

// DecisionSpace is the full typed decision space for one optimization run:
// an ordered, name-unique set of variables plus the constraint set, safety
// thresholds and objective direction. Immutable once the run starts.
type DecisionSpace struct {
	Variables   []DecisionVariable
	Constraints []Constraint
	Safety      SafetyThresholds
	Objective   Objective
}

// Variable returns the declared variable with the given name.
func (s *DecisionSpace) Variable(name string) (DecisionVariable, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return DecisionVariable{}, false
}

// ValidationIssue describes one problem found by Validate. Field names the
// offending variable, constraint id or threshold so the caller can fix the
// configuration without re-deriving context.
type ValidationIssue struct {
	Field   string
	Message string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Validate checks the space for configuration errors and returns every issue
// found (no short-circuit). An empty slice means the space is usable.
// Pure check; no side effects.
func (s *DecisionSpace) Validate() []ValidationIssue {
	var issues []ValidationIssue

	if len(s.Variables) == 0 {
		issues = append(issues, ValidationIssue{Field: "variables", Message: "decision space has no variables"})
	}
	if !IsValidObjective(s.Objective) {
		issues = append(issues, ValidationIssue{Field: "objective", Message: fmt.Sprintf("unknown objective %q (valid: %s, %s)", s.Objective, Maximize, Minimize)})
	}

	seen := make(map[string]bool, len(s.Variables))
	for _, v := range s.Variables {
		field := "variables." + v.Name
		if v.Name == "" {
			issues = append(issues, ValidationIssue{Field: "variables", Message: "variable with empty name"})
			continue
		}
		if seen[v.Name] {
			issues = append(issues, ValidationIssue{Field: field, Message: "duplicate variable name"})
			continue
		}
		seen[v.Name] = true

		switch {
		case !IsValidVarKind(v.Kind):
			issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf("unknown kind %q", v.Kind)})
		case v.IsNumeric():
			if math.IsNaN(v.Min) || math.IsNaN(v.Max) || math.IsInf(v.Min, 0) || math.IsInf(v.Max, 0) {
				issues = append(issues, ValidationIssue{Field: field, Message: "bounds must be finite"})
			} else if v.Min >= v.Max {
				issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf("min must be < max (min=%v, max=%v)", v.Min, v.Max)})
			}
			if len(v.Levels) > 0 {
				issues = append(issues, ValidationIssue{Field: field, Message: "numeric variable must not declare levels"})
			}
		case v.Kind == KindCategorical:
			if len(v.Levels) == 0 {
				issues = append(issues, ValidationIssue{Field: field, Message: "categorical variable has empty level set"})
			}
			levelSeen := make(map[string]bool, len(v.Levels))
			for _, lv := range v.Levels {
				if levelSeen[lv] {
					issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf("duplicate level %q", lv)})
				}
				levelSeen[lv] = true
			}
		}
	}

	for _, c := range s.Constraints {
		field := "constraints." + c.ID()
		for _, ref := range c.Variables() {
			if !seen[ref] {
				issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf("references undeclared variable %q", ref)})
			}
		}
		if msg := c.check(s); msg != "" {
			issues = append(issues, ValidationIssue{Field: field, Message: msg})
		}
	}

	st := s.Safety
	if st.MinTrainingDistance < 0 {
		issues = append(issues, ValidationIssue{Field: "safety.min_training_distance", Message: "must be >= 0"})
	}
	if st.MaxTrainingDistance <= st.MinTrainingDistance {
		issues = append(issues, ValidationIssue{Field: "safety.max_training_distance", Message: fmt.Sprintf("must be > min_training_distance (min=%v, max=%v)", st.MinTrainingDistance, st.MaxTrainingDistance)})
	}
	for _, lim := range st.Limits {
		field := "safety.limits." + lim.Variable
		v, ok := s.Variable(lim.Variable)
		if !ok {
			issues = append(issues, ValidationIssue{Field: field, Message: "references undeclared variable"})
			continue
		}
		if !v.IsNumeric() {
			issues = append(issues, ValidationIssue{Field: field, Message: "safety limits apply to numeric variables only"})
		}
		if lim.Low > lim.High {
			issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf("low must be <= high (low=%v, high=%v)", lim.Low, lim.High)})
		}
	}

	return issues
}
