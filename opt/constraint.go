package opt

import (
	"fmt"
	"math"
)

// Relation is the comparison operator of a constraint predicate.
type Relation string

const (
	RelLE Relation = "<="
	RelGE Relation = ">="
	RelEQ Relation = "="
)

// eqTol is the absolute tolerance for equality relations over floats.
const eqTol = 1e-9

// IsValidRelation returns true for a recognized relation.
func IsValidRelation(r Relation) bool {
	return r == RelLE || r == RelGE || r == RelEQ
}

func relationHolds(r Relation, left, right float64) bool {
	switch r {
	case RelLE:
		return left <= right
	case RelGE:
		return left >= right
	case RelEQ:
		return math.Abs(left-right) <= eqTol
	default:
		// Validation rejects unknown relations before evaluation.
		panic(fmt.Sprintf("unknown relation %q", r))
	}
}

// Constraint is a hard inequality/equality predicate over one or more
// declared variables. Candidates violating any Constraint are dropped by the
// FeasibilityFilter and never scored or surfaced.
type Constraint interface {
	// ID identifies the constraint in validation issues, diagnostics and
	// relaxation suggestions.
	ID() string
	// Variables lists every variable name the constraint references.
	Variables() []string
	// Satisfied evaluates the predicate against a candidate. A variable
	// missing from the candidate counts as a violation.
	Satisfied(c Candidate) bool
	// check performs constraint-specific validation against the space and
	// returns a non-empty message on misconfiguration.
	check(space *DecisionSpace) string
}

// CompareConstraint relates two numeric variables, e.g. "ramp_start <= ramp_end".
type CompareConstraint struct {
	Name     string
	Left     string
	Right    string
	Relation Relation
}

func (cc CompareConstraint) ID() string          { return cc.Name }
func (cc CompareConstraint) Variables() []string { return []string{cc.Left, cc.Right} }

func (cc CompareConstraint) Satisfied(c Candidate) bool {
	l, okL := c.NumericValue(cc.Left)
	r, okR := c.NumericValue(cc.Right)
	if !okL || !okR {
		return false
	}
	return relationHolds(cc.Relation, l, r)
}

func (cc CompareConstraint) check(space *DecisionSpace) string {
	if !IsValidRelation(cc.Relation) {
		return fmt.Sprintf("unknown relation %q", cc.Relation)
	}
	for _, name := range cc.Variables() {
		if v, ok := space.Variable(name); ok && !v.IsNumeric() {
			return fmt.Sprintf("compare constraint requires numeric variables; %q is %s", name, v.Kind)
		}
	}
	return ""
}

// LinearSumConstraint bounds the sum of several numeric variables,
// e.g. "solvent_a + solvent_b + solvent_c = 100".
type LinearSumConstraint struct {
	Name     string
	Vars     []string
	Relation Relation
	Bound    float64
}

func (lc LinearSumConstraint) ID() string          { return lc.Name }
func (lc LinearSumConstraint) Variables() []string { return lc.Vars }

func (lc LinearSumConstraint) Satisfied(c Candidate) bool {
	sum := 0.0
	for _, name := range lc.Vars {
		v, ok := c.NumericValue(name)
		if !ok {
			return false
		}
		sum += v
	}
	return relationHolds(lc.Relation, sum, lc.Bound)
}

func (lc LinearSumConstraint) check(space *DecisionSpace) string {
	if !IsValidRelation(lc.Relation) {
		return fmt.Sprintf("unknown relation %q", lc.Relation)
	}
	if len(lc.Vars) == 0 {
		return "linear-sum constraint has no variables"
	}
	if math.IsNaN(lc.Bound) || math.IsInf(lc.Bound, 0) {
		return "bound must be finite"
	}
	for _, name := range lc.Vars {
		if v, ok := space.Variable(name); ok && !v.IsNumeric() {
			return fmt.Sprintf("linear-sum constraint requires numeric variables; %q is %s", name, v.Kind)
		}
	}
	return ""
}

// LockConstraint pins a numeric variable to an exact value (within eqTol).
type LockConstraint struct {
	Name     string
	Variable string
	Value    float64
}

func (lk LockConstraint) ID() string          { return lk.Name }
func (lk LockConstraint) Variables() []string { return []string{lk.Variable} }

func (lk LockConstraint) Satisfied(c Candidate) bool {
	v, ok := c.NumericValue(lk.Variable)
	if !ok {
		return false
	}
	return math.Abs(v-lk.Value) <= eqTol
}

func (lk LockConstraint) check(space *DecisionSpace) string {
	v, ok := space.Variable(lk.Variable)
	if !ok {
		return "" // undeclared reference reported by Validate
	}
	if !v.IsNumeric() {
		return fmt.Sprintf("lock constraint requires a numeric variable; %q is %s", lk.Variable, v.Kind)
	}
	if lk.Value < v.Min || lk.Value > v.Max {
		return fmt.Sprintf("locked value %v outside bounds [%v, %v]", lk.Value, v.Min, v.Max)
	}
	return ""
}

// AllowedLevelsConstraint restricts a categorical variable to a subset of its
// declared levels. The CandidateSampler also consults it, so restricted
// levels are never drawn in the first place; Satisfied still guards
// externally supplied candidates.
type AllowedLevelsConstraint struct {
	Name     string
	Variable string
	Allowed  []string
}

func (al AllowedLevelsConstraint) ID() string          { return al.Name }
func (al AllowedLevelsConstraint) Variables() []string { return []string{al.Variable} }

func (al AllowedLevelsConstraint) Satisfied(c Candidate) bool {
	lv, ok := c.Level(al.Variable)
	if !ok {
		return false
	}
	for _, a := range al.Allowed {
		if a == lv {
			return true
		}
	}
	return false
}

func (al AllowedLevelsConstraint) check(space *DecisionSpace) string {
	if len(al.Allowed) == 0 {
		return "allowed level set cannot be empty"
	}
	v, ok := space.Variable(al.Variable)
	if !ok {
		return ""
	}
	if v.Kind != KindCategorical {
		return fmt.Sprintf("allowed-levels constraint requires a categorical variable; %q is %s", al.Variable, v.Kind)
	}
	declared := make(map[string]bool, len(v.Levels))
	for _, lv := range v.Levels {
		declared[lv] = true
	}
	for _, a := range al.Allowed {
		if !declared[a] {
			return fmt.Sprintf("level %q not in declared levels of %q", a, al.Variable)
		}
	}
	return ""
}

// effectiveLevels returns the level set the sampler may draw for a
// categorical variable: the declared levels intersected with every
// AllowedLevelsConstraint targeting it, preserving declared order.
func effectiveLevels(space *DecisionSpace, v DecisionVariable) []string {
	levels := v.Levels
	for _, c := range space.Constraints {
		al, ok := c.(AllowedLevelsConstraint)
		if !ok || al.Variable != v.Name {
			continue
		}
		allowed := make(map[string]bool, len(al.Allowed))
		for _, a := range al.Allowed {
			allowed[a] = true
		}
		kept := make([]string, 0, len(levels))
		for _, lv := range levels {
			if allowed[lv] {
				kept = append(kept, lv)
			}
		}
		levels = kept
	}
	return levels
}
