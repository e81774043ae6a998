package opt

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/doe-optimizer/doe-optimizer/opt/trace"
)

// RunInput carries every input of one optimization run explicitly. The
// engine holds no process-wide state, so independent runs (different seeds)
// may execute concurrently.
type RunInput struct {
	Space *DecisionSpace
	Model Surrogate

	// TrainingRef is the read-only reference set the surrogate was fitted
	// on, used only for novelty distance.
	TrainingRef []Candidate

	// IncumbentBest is the best observed response so far, the improvement
	// baseline. Direction comes from Space.Objective.
	IncumbentBest float64

	Settings Settings
}

// RunResult is the engine's read-only output: the ranked batch, the
// escalation verdict, and the audit trace. Export/serialization belongs to
// the caller's artifact layer.
type RunResult struct {
	Batch   Batch
	State   EscalationState
	Trace   *trace.RunTrace
	Summary *trace.RunSummary
}

// Run executes one synchronous optimization run: validate → sample → filter
// → predict → score → select, with the escalation controller owning the only
// retry loop. All other stages are single-pass and side-effect-free.
//
// Configuration and surrogate errors are fatal (returned); infeasibility is
// not an error; it comes back as EscalationState L1-L4 on the result.
func Run(in RunInput) (*RunResult, error) {
	if in.Space == nil {
		return nil, fmt.Errorf("space: must not be nil")
	}
	if in.Model == nil {
		return nil, fmt.Errorf("model: must not be nil")
	}
	if err := in.Settings.validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(in.IncumbentBest) || math.IsInf(in.IncumbentBest, 0) {
		return nil, fmt.Errorf("incumbent_best: must be finite, got %v", in.IncumbentBest)
	}
	if issues := in.Space.Validate(); len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, issue := range issues {
			msgs[i] = issue.String()
		}
		return nil, fmt.Errorf("invalid decision space: %s", strings.Join(msgs, "; "))
	}

	metric, err := NewDistanceMetric(in.Space, in.Settings.Distance)
	if err != nil {
		return nil, err
	}

	run := &engineRun{
		in:     in,
		metric: metric,
		scoreCfg: ScoreConfig{
			Acquisition: in.Settings.Acquisition,
			Objective:   in.Space.Objective,
			UCBKappa:    in.Settings.UCBKappa,
		},
		prng:   NewPartitionedRNG(NewRunKey(in.Settings.Seed)),
		trace:  trace.NewRunTrace(),
		level:  L0,
		minDiv: in.Settings.MinDiversityDistance,
	}
	logrus.Infof("optimization run %s: acquisition=%s batch=%d pool=%d seed=%d",
		run.trace.RunID, in.Settings.Acquisition, in.Settings.BatchSize, in.Settings.PoolSize, in.Settings.Seed)
	return run.execute()
}

// engineRun is the run-local state of one invocation. Nothing here outlives
// the run except the values copied into RunResult.
type engineRun struct {
	in       RunInput
	metric   *DistanceMetric
	scoreCfg ScoreConfig
	prng     *PartitionedRNG
	trace    *trace.RunTrace

	level          Level
	minDiv         float64
	relaxed        bool
	partialRetried bool
	suggestions    []Relaxation
	lastDiag       FilterDiagnostics
	lastScored     []ScoredCandidate
	bestPartial    Batch
	emptyAttempts  int
}

func (r *engineRun) execute() (*RunResult, error) {
	s := r.in.Settings
	maxAttempts := s.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		seed := r.attemptSeed(attempt)

		pool, err := SamplePool(r.in.Space, s.PoolSize, seed)
		if err != nil {
			return nil, err
		}
		scored, diag := ApplyFilter(pool, r.in.Space, r.metric, r.in.TrainingRef)
		r.lastDiag = diag

		if diag.Eligible == 0 {
			r.emptyAttempts++
			r.level = Transition(r.level, OutcomeEmptyEligible)
			if r.suggestions == nil {
				r.suggestions = suggestRelaxations(diag, r.in.Space)
				for _, rx := range r.suggestions {
					r.trace.RecordRelaxation(trace.RelaxationRecord{Kind: string(rx.Kind), Target: rx.Target, Message: rx.Message})
				}
			}
			r.recordAttempt(attempt, seed, diag, 0)
			logrus.Warnf("attempt %d: no eligible candidates (pool=%d, dropped=%d); escalating to %s",
				attempt, diag.PoolSize, diag.ConstraintRemoved, r.level)
			continue
		}

		means, stds, err := PredictWithUncertainty(r.in.Model, candidatesOf(scored), s.UncertaintyMode)
		if err != nil {
			return nil, err
		}
		scored, err = ScorePool(scored, means, stds, r.scoreCfg, r.in.IncumbentBest)
		if err != nil {
			return nil, err
		}
		for i := range scored {
			scored[i].Seed = seed
		}
		r.lastScored = scored

		batch := r.selectWith(scored, r.minDiv)
		if !batch.Empty() && batch.Shortfall() == 0 {
			r.level = Transition(r.level, OutcomeFullBatch)
			r.recordAttempt(attempt, seed, diag, len(batch.Members))
			return r.finish(batch, fmt.Sprintf("full batch of %d admitted", len(batch.Members))), nil
		}
		if batch.Empty() {
			// The eligibility predicate rejected every survivor: same
			// outcome as an empty eligible pool.
			r.emptyAttempts++
			r.level = Transition(r.level, OutcomeEmptyEligible)
			if r.suggestions == nil {
				r.suggestions = suggestRelaxations(diag, r.in.Space)
				for _, rx := range r.suggestions {
					r.trace.RecordRelaxation(trace.RelaxationRecord{Kind: string(rx.Kind), Target: rx.Target, Message: rx.Message})
				}
			}
			r.recordAttempt(attempt, seed, diag, 0)
			continue
		}

		// Partial batch.
		r.level = Transition(r.level, OutcomePartialBatch)
		if len(batch.Members) > len(r.bestPartial.Members) {
			r.bestPartial = batch
		}
		r.recordAttempt(attempt, seed, diag, len(batch.Members))
		logrus.Infof("attempt %d: partial batch %d/%d at min_diversity=%v",
			attempt, len(batch.Members), s.BatchSize, r.minDiv)

		if !r.partialRetried {
			// One retry at the original threshold before relaxing.
			r.partialRetried = true
			continue
		}
		if !r.relaxed {
			// L2: halve the threshold once and re-select from the same
			// scored pool. The diversity invariant is re-checked against
			// the relaxed threshold by the fresh selection pass.
			r.relaxed = true
			r.minDiv /= 2
			r.level = Transition(r.level, OutcomeDiversityRelaxed)
			relaxedBatch := r.selectWith(scored, r.minDiv)
			r.recordAttempt(attempt, seed, diag, len(relaxedBatch.Members))
			if len(relaxedBatch.Members) > len(r.bestPartial.Members) {
				r.bestPartial = relaxedBatch
			}
			if relaxedBatch.Shortfall() == 0 {
				return r.finish(relaxedBatch, fmt.Sprintf("full batch of %d admitted after diversity relaxed to %v", len(relaxedBatch.Members), r.minDiv)), nil
			}
			return r.finish(relaxedBatch, fmt.Sprintf("partial batch %d/%d after diversity relaxed to %v", len(relaxedBatch.Members), s.BatchSize, r.minDiv)), nil
		}
	}

	if !r.bestPartial.Empty() {
		return r.finish(r.bestPartial, fmt.Sprintf("partial batch %d/%d after %d attempts", len(r.bestPartial.Members), s.BatchSize, maxAttempts)), nil
	}

	// No batch at all. A single empty-eligible attempt stays at L3 (the
	// suggestions demand explicit human action); the circuit breaker fires
	// only when retries after the suggestions surfaced still come up empty.
	if r.emptyAttempts > 1 {
		r.level = Transition(r.level, OutcomeRetriesExhausted)
		logrus.Errorf("retry cap (%d) exhausted with empty eligible set; halting automatic attempts", s.MaxRetries)
		return r.finish(Batch{RequestedSize: s.BatchSize, DiversityDistance: r.minDiv},
			fmt.Sprintf("retry cap (%d) exhausted with empty eligible set; human acknowledgment required", s.MaxRetries)), nil
	}
	return r.finish(Batch{RequestedSize: s.BatchSize, DiversityDistance: r.minDiv},
		"no eligible candidates after filtering; apply a suggested relaxation and re-run"), nil
}

// attemptSeed derives the sampling seed for a retry attempt. Attempt 0 uses
// the master seed directly so recorded seeds replay the first pool.
func (r *engineRun) attemptSeed(attempt int) int64 {
	if attempt == 0 {
		return r.in.Settings.Seed
	}
	return r.prng.ForSubsystem(SubsystemAttempt(attempt)).Int63()
}

func (r *engineRun) selectWith(scored []ScoredCandidate, minDiv float64) Batch {
	return SelectBatch(scored, SelectorConfig{
		BatchSize:            r.in.Settings.BatchSize,
		MinDiversityDistance: minDiv,
		Eligible:             r.in.Settings.Eligible,
	}, r.metric)
}

func (r *engineRun) recordAttempt(attempt int, seed int64, diag FilterDiagnostics, selected int) {
	r.trace.RecordAttempt(trace.AttemptRecord{
		Attempt:           attempt,
		Seed:              seed,
		PoolSize:          diag.PoolSize,
		ConstraintRemoved: diag.ConstraintRemoved,
		SafetyFlagged:     diag.SafetyFlagged,
		NoveltyFlagged:    diag.NoveltyFlagged,
		Eligible:          diag.Eligible,
		DiversityDistance: r.minDiv,
		Selected:          selected,
		Level:             r.level.String(),
	})
}

// finish assembles the immutable result for any terminal outcome.
func (r *engineRun) finish(batch Batch, reason string) *RunResult {
	state := EscalationState{
		Level:            r.level,
		Reason:           reason,
		Suggestions:      r.suggestions,
		Shortfall:        batch.Shortfall(),
		DiversityRelaxed: r.relaxed,
		Diagnostics:      r.lastDiag,
	}

	members := make([]Candidate, len(batch.Members))
	for i, m := range batch.Members {
		members[i] = m.Candidate
	}
	diversityMin, hasDiversity := r.metric.MinPairwise(members)
	uncertainFrac := highSigmaFraction(r.lastScored, r.in.Settings.HighSigma)
	summary := trace.Summarize(r.trace, diversityMin, hasDiversity, uncertainFrac)

	logrus.Infof("run %s finished at %s: %s", r.trace.RunID, state.Level, reason)
	return &RunResult{Batch: batch, State: state, Trace: r.trace, Summary: summary}
}

// candidatesOf extracts the candidate column for the batched surrogate call.
func candidatesOf(scored []ScoredCandidate) []Candidate {
	out := make([]Candidate, len(scored))
	for i := range scored {
		out[i] = scored[i].Candidate
	}
	return out
}

// highSigmaFraction is the share of scored candidates whose std meets or
// exceeds the high-sigma threshold; 0 for an empty pool or zero threshold.
func highSigmaFraction(scored []ScoredCandidate, highSigma float64) float64 {
	if len(scored) == 0 || highSigma <= 0 {
		return 0
	}
	count := 0
	for i := range scored {
		if scored[i].Std >= highSigma {
			count++
		}
	}
	return float64(count) / float64(len(scored))
}
