package opt

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// EligibilityPredicate decides, from the flag record alone, whether a scored
// candidate may enter batch selection. The safety/novelty eligibility policy
// is the caller's, not the selector's: the default admits everything and
// leaves the flags for human acknowledgment downstream.
type EligibilityPredicate func(Flags) bool

// AdmitAll is the default eligibility policy: flags are surfaced, never gate.
func AdmitAll(Flags) bool { return true }

// RequireSafe admits only candidates with SafetyOK set.
func RequireSafe(f Flags) bool { return f.SafetyOK }

// RequireSafeAndNovel admits only candidates with both SafetyOK and NoveltyOK.
func RequireSafeAndNovel(f Flags) bool { return f.SafetyOK && f.NoveltyOK }

// SelectorConfig parameterizes one batch selection pass.
type SelectorConfig struct {
	BatchSize            int
	MinDiversityDistance float64
	// Eligible filters candidates before ranking; nil means AdmitAll.
	Eligible EligibilityPredicate
}

// SelectBatch greedily assembles a ranked batch from the scored pool.
//
// Eligible candidates are sorted by descending acquisition score with ties
// broken by insertion order (stable, deterministic). The sorted list is
// walked greedily: a candidate is admitted only if its distance to every
// already-admitted member is >= MinDiversityDistance. Admitted members get
// Diverse=true and ranks 1..k in admission order. Selection stops at
// BatchSize members or list exhaustion.
//
// An empty batch is a named outcome for the EscalationController, not an
// error. Input order is not mutated; members are copies.
func SelectBatch(scored []ScoredCandidate, cfg SelectorConfig, metric *DistanceMetric) Batch {
	eligible := cfg.Eligible
	if eligible == nil {
		eligible = AdmitAll
	}

	order := make([]int, 0, len(scored))
	for i := range scored {
		if eligible(scored[i].Flags) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].Score > scored[order[b]].Score
	})

	batch := Batch{
		RequestedSize:     cfg.BatchSize,
		DiversityDistance: cfg.MinDiversityDistance,
	}
	for _, idx := range order {
		if len(batch.Members) == cfg.BatchSize {
			break
		}
		if !diverseEnough(scored[idx].Candidate, batch.Members, cfg.MinDiversityDistance, metric) {
			continue
		}
		member := scored[idx]
		member.Flags.Diverse = true
		member.Rank = len(batch.Members) + 1
		batch.Members = append(batch.Members, member)
	}

	logrus.Debugf("select: eligible=%d admitted=%d/%d min_diversity=%v",
		len(order), len(batch.Members), cfg.BatchSize, cfg.MinDiversityDistance)
	return batch
}

// diverseEnough reports whether c clears the pairwise diversity threshold
// against every admitted member.
func diverseEnough(c Candidate, members []ScoredCandidate, minDist float64, metric *DistanceMetric) bool {
	for _, m := range members {
		if metric.Distance(c, m.Candidate) < minDist {
			return false
		}
	}
	return true
}
