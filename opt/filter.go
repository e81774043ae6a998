package opt

import (
	"github.com/sirupsen/logrus"
)

// FilterDiagnostics counts what each filter stage did to the pool. The
// EscalationController derives relaxation suggestions from the stage that
// eliminated or flagged the most candidates.
type FilterDiagnostics struct {
	PoolSize int

	// Hard-constraint drops. Dropped candidates are gone for good: never
	// scored, never surfaced.
	ConstraintRemoved   int
	ConstraintRemovedBy map[string]int // constraint ID → drop count

	// Soft flags. Flagged candidates stay in the pool with the respective
	// flag false, surfaced for downstream acknowledgment.
	SafetyFlagged   int
	SafetyFlaggedBy map[string]int // limit variable → flag count
	NoveltyFlagged  int
	NoveltyTooClose int // below the hull's min training distance
	NoveltyTooFar   int // beyond the hull's max training distance

	// Eligible is the number of candidates surviving the hard drop.
	Eligible int
}

// ApplyFilter runs the feasibility stage over a sampled pool: drops
// hard-constraint violators outright and sets SafetyOK / NoveltyOK on the
// survivors. Score fields stay zero (filled by the scorer); Diverse stays
// false (set by the selector on admission).
//
// trainingRef is the externally supplied reference set used only for novelty
// distance. An empty reference set leaves NoveltyOK true for everything:
// with no data there is nothing to be redundant with or extrapolate from.
func ApplyFilter(pool []Candidate, space *DecisionSpace, metric *DistanceMetric, trainingRef []Candidate) ([]ScoredCandidate, FilterDiagnostics) {
	diag := FilterDiagnostics{
		PoolSize:            len(pool),
		ConstraintRemovedBy: make(map[string]int),
		SafetyFlaggedBy:     make(map[string]int),
	}

	scored := make([]ScoredCandidate, 0, len(pool))
	for _, c := range pool {
		if id, ok := violatedConstraint(c, space); ok {
			diag.ConstraintRemoved++
			diag.ConstraintRemovedBy[id]++
			continue
		}

		flags := Flags{SafetyOK: true, NoveltyOK: true}

		for _, lim := range space.Safety.Limits {
			v, ok := c.NumericValue(lim.Variable)
			if !ok {
				continue
			}
			if v < lim.Low || v > lim.High {
				flags.SafetyOK = false
				diag.SafetyFlaggedBy[lim.Variable]++
			}
		}
		if !flags.SafetyOK {
			diag.SafetyFlagged++
		}

		if len(trainingRef) > 0 {
			d := metric.MinDistanceTo(c, trainingRef)
			if d < space.Safety.MinTrainingDistance {
				flags.NoveltyOK = false
				diag.NoveltyTooClose++
			} else if d > space.Safety.MaxTrainingDistance {
				flags.NoveltyOK = false
				diag.NoveltyTooFar++
			}
		}
		if !flags.NoveltyOK {
			diag.NoveltyFlagged++
		}

		scored = append(scored, ScoredCandidate{Candidate: c, Flags: flags})
	}

	diag.Eligible = len(scored)
	logrus.Debugf("filter: pool=%d dropped=%d safety_flagged=%d novelty_flagged=%d eligible=%d",
		diag.PoolSize, diag.ConstraintRemoved, diag.SafetyFlagged, diag.NoveltyFlagged, diag.Eligible)
	return scored, diag
}

// violatedConstraint returns the ID of the first hard constraint the
// candidate violates. Constraint order follows the space declaration, so
// attribution is deterministic.
func violatedConstraint(c Candidate, space *DecisionSpace) (string, bool) {
	for _, con := range space.Constraints {
		if !con.Satisfied(c) {
			return con.ID(), true
		}
	}
	return "", false
}
