package opt

import (
	"fmt"
	"time"
)

// Level is one rung of the feasibility-recovery ladder. Each level is
// stricter than the last; within one run observed levels only move forward.
type Level int

const (
	// L0, auto-pass: a full batch with no relaxation needed. Terminal success.
	L0 Level = iota
	// L1, partial batch: 0 < admitted < requested; caller decides whether
	// to accept or let the controller retry.
	L1
	// L2, diversity relaxed: the controller halved the diversity threshold
	// after a partial batch persisted through one retry.
	L2
	// L3, bounds/constraint relaxation suggested: the eligible pool was
	// empty before selection; concrete suggestions are attached but nothing
	// is relaxed automatically.
	L3
	// L4, circuit breaker: the retry cap still yields an empty eligible
	// set; automatic attempts halt and human acknowledgment is required.
	L4
)

func (l Level) String() string {
	if l < L0 || l > L4 {
		return fmt.Sprintf("L?(%d)", int(l))
	}
	return [...]string{"L0", "L1", "L2", "L3", "L4"}[l]
}

// Outcome is what one controller iteration observed.
type Outcome int

const (
	// OutcomeFullBatch: the selector admitted a full batch.
	OutcomeFullBatch Outcome = iota
	// OutcomePartialBatch: 0 < admitted < requested.
	OutcomePartialBatch
	// OutcomeDiversityRelaxed: the controller reduced the diversity threshold.
	OutcomeDiversityRelaxed
	// OutcomeEmptyEligible: the filter left no eligible candidates.
	OutcomeEmptyEligible
	// OutcomeRetriesExhausted: the retry cap was reached with no batch.
	OutcomeRetriesExhausted
)

// Transition maps (level, outcome) to the next ladder level. Monotone by
// construction: the result is never below the current level, so the
// forward-only property holds for any outcome sequence.
func Transition(current Level, outcome Outcome) Level {
	target := current
	switch outcome {
	case OutcomeFullBatch:
		target = L0
	case OutcomePartialBatch:
		target = L1
	case OutcomeDiversityRelaxed:
		target = L2
	case OutcomeEmptyEligible:
		target = L3
	case OutcomeRetriesExhausted:
		target = L4
	}
	if target < current {
		return current
	}
	return target
}

// RelaxationKind classifies a suggested relaxation.
type RelaxationKind string

const (
	// RelaxConstraint suggests loosening or removing a hard constraint.
	RelaxConstraint RelaxationKind = "relax-constraint"
	// WidenBounds suggests widening a variable bound or safety limit.
	WidenBounds RelaxationKind = "widen-bounds"
	// WidenHull suggests widening the novelty hull band.
	WidenHull RelaxationKind = "widen-hull"
)

// Relaxation is one concrete, actionable suggestion attached at L3+.
// The controller never applies it; that is an explicit human/caller action.
type Relaxation struct {
	Kind    RelaxationKind
	Target  string // constraint ID, variable name, or threshold name
	Message string
}

// EscalationState is the controller's final verdict for one run: the ladder
// level reached, why, and what to do about it. Read-only once returned.
type EscalationState struct {
	Level       Level
	Reason      string
	Suggestions []Relaxation
	// Shortfall is how many members short of the requested batch size the
	// run ended; 0 at L0.
	Shortfall int
	// DiversityRelaxed is true when the threshold was reduced (L2+ path).
	DiversityRelaxed bool
	// Diagnostics carries the per-stage counts of the final attempt.
	Diagnostics FilterDiagnostics
}

// RequiresAck reports whether the level demands human acknowledgment before
// any further automatic run. L3 asks for explicit relaxation action; L4 is a
// hard stop.
func (s EscalationState) RequiresAck() bool {
	return s.Level >= L3
}

// AckRecord is the serializable human-acknowledgment record for L3/L4
// outcomes. The engine only produces it; persistence belongs to the caller's
// artifact layer.
type AckRecord struct {
	Level       Level
	AckRequired bool
	Messages    []string
	Operator    string
	AckedAt     time.Time // zero until Acknowledge is called
}

// BuildAckRecord assembles the acknowledgment record for a final state.
// Messages are the reason plus one line per suggestion.
func BuildAckRecord(state EscalationState, operator string) AckRecord {
	if operator == "" {
		operator = "unknown"
	}
	msgs := []string{state.Reason}
	for _, r := range state.Suggestions {
		msgs = append(msgs, r.Message)
	}
	return AckRecord{
		Level:       state.Level,
		AckRequired: state.RequiresAck(),
		Messages:    msgs,
		Operator:    operator,
	}
}

// Acknowledge stamps the record with the acknowledging operator and time.
func (a AckRecord) Acknowledge(operator string, at time.Time) AckRecord {
	a.Operator = operator
	a.AckedAt = at
	return a
}

// suggestRelaxations derives concrete suggestions from filter diagnostics,
// targeting the stage that eliminated or flagged the most candidates first.
func suggestRelaxations(diag FilterDiagnostics, space *DecisionSpace) []Relaxation {
	var out []Relaxation

	if diag.ConstraintRemoved > 0 {
		id, count := maxCount(diag.ConstraintRemovedBy)
		out = append(out, Relaxation{
			Kind:    RelaxConstraint,
			Target:  id,
			Message: fmt.Sprintf("constraint %q removed %d of %d candidates; loosen its bound or remove it", id, count, diag.PoolSize),
		})
	}
	if diag.SafetyFlagged > 0 {
		variable, count := maxCount(diag.SafetyFlaggedBy)
		out = append(out, Relaxation{
			Kind:    WidenBounds,
			Target:  variable,
			Message: fmt.Sprintf("safety limit on %q flagged %d of %d candidates; widen the limit or the variable bounds", variable, count, diag.PoolSize),
		})
	}
	if diag.NoveltyTooFar > diag.NoveltyTooClose && diag.NoveltyTooFar > 0 {
		out = append(out, Relaxation{
			Kind:    WidenHull,
			Target:  "max_training_distance",
			Message: fmt.Sprintf("%d of %d candidates lie beyond the training hull (max_training_distance=%v); raise it or add training data", diag.NoveltyTooFar, diag.PoolSize, space.Safety.MaxTrainingDistance),
		})
	} else if diag.NoveltyTooClose > 0 {
		out = append(out, Relaxation{
			Kind:    WidenHull,
			Target:  "min_training_distance",
			Message: fmt.Sprintf("%d of %d candidates sit within %v of existing training data; lower min_training_distance or widen variable bounds", diag.NoveltyTooClose, diag.PoolSize, space.Safety.MinTrainingDistance),
		})
	}
	if len(out) == 0 {
		out = append(out, Relaxation{
			Kind:    WidenBounds,
			Target:  "variables",
			Message: "no single filter stage dominated; widen variable bounds or increase the sampling pool",
		})
	}
	return out
}

// maxCount returns the key with the largest count; ties resolve to the
// lexicographically smallest key for determinism.
func maxCount(counts map[string]int) (string, int) {
	bestKey := ""
	bestCount := -1
	for k, v := range counts {
		if v > bestCount || (v == bestCount && k < bestKey) {
			bestKey, bestCount = k, v
		}
	}
	return bestKey, bestCount
}
