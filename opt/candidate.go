package opt

import (
	"fmt"
	"sort"
	"strings"
)

// Candidate is a concrete assignment of one value per DecisionVariable.
// Numeric holds continuous/integer assignments; Categorical holds level
// assignments. A Candidate always conforms to variable bounds/levels, but
// may violate Constraints or SafetyThresholds; those are checked by the
// FeasibilityFilter, never assumed.
type Candidate struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// NewCandidate creates an empty Candidate with initialized maps.
func NewCandidate() Candidate {
	return Candidate{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
}

// NumericValue returns the numeric assignment for name.
// ok is false if the variable is absent or categorical.
func (c Candidate) NumericValue(name string) (float64, bool) {
	v, ok := c.Numeric[name]
	return v, ok
}

// Level returns the categorical assignment for name.
func (c Candidate) Level(name string) (string, bool) {
	v, ok := c.Categorical[name]
	return v, ok
}

// Equal reports whether two candidates assign identical values to identical
// variables. Numeric comparison is exact; sampling determinism guarantees
// bit-identical values for duplicate draws.
func (c Candidate) Equal(other Candidate) bool {
	if len(c.Numeric) != len(other.Numeric) || len(c.Categorical) != len(other.Categorical) {
		return false
	}
	for k, v := range c.Numeric {
		ov, ok := other.Numeric[k]
		if !ok || ov != v {
			return false
		}
	}
	for k, v := range c.Categorical {
		ov, ok := other.Categorical[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Key returns a canonical string key for deduplication.
// Variables are sorted by name so key equality matches Equal.
func (c Candidate) Key() string {
	names := make([]string, 0, len(c.Numeric)+len(c.Categorical))
	for k := range c.Numeric {
		names = append(names, k)
	}
	for k := range c.Categorical {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if v, ok := c.Numeric[name]; ok {
			fmt.Fprintf(&b, "%s=%v|", name, v)
		} else {
			fmt.Fprintf(&b, "%s=%s|", name, c.Categorical[name])
		}
	}
	return b.String()
}

// Flags is the per-candidate feasibility flag record. The three booleans are
// orthogonal and are never collapsed into a single verdict: SafetyOK and
// NoveltyOK are set by the FeasibilityFilter, Diverse is set by the
// BatchSelector on admission. Downstream eligibility is a caller-supplied
// predicate over this record (see EligibilityPredicate).
type Flags struct {
	SafetyOK  bool
	NoveltyOK bool
	Diverse   bool
}

// ScoredCandidate is a Candidate annotated by the filter/scorer pipeline.
// Created once per optimization run; after creation only Diverse and Rank
// are mutated, both by the BatchSelector during admission.
type ScoredCandidate struct {
	Candidate Candidate
	Mean      float64
	Std       float64 // 0 when the surrogate reports no uncertainty
	Score     float64
	Flags     Flags

	// Provenance for audit trails.
	Acquisition Acquisition
	Seed        int64

	// Rank is 1-based admission order within the batch; 0 if not admitted.
	Rank int
}

// Batch is the ranked, diversity-constrained output of one optimization run.
// Members carry strict ranks 1..len(Members) in admission order. Immutable
// once produced by the BatchSelector.
type Batch struct {
	Members []ScoredCandidate

	// RequestedSize is the batch size the caller asked for; len(Members)
	// may be smaller (partial batch, escalation L1+).
	RequestedSize int

	// DiversityDistance is the minimum pairwise distance threshold actually
	// enforced, after any L2 relaxation.
	DiversityDistance float64
}

// Shortfall returns how many members short of the requested size the batch is.
func (b Batch) Shortfall() int {
	return b.RequestedSize - len(b.Members)
}

// Empty reports whether no candidate was admitted. An empty batch is a named
// outcome handled by the EscalationController, not an error.
func (b Batch) Empty() bool {
	return len(b.Members) == 0
}
