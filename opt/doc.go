// Package opt provides the constrained batch optimization and
// candidate-scoring engine for experiment design.
//
// # Reading Guide
//
// Start with these three files to understand the proposal pipeline:
//   - space.go: the typed decision space (variables, constraints, safety thresholds) and its validation
//   - engine.go: the per-run orchestration (sample, filter, predict, score, select) and the retry loop
//   - escalation.go: the L0-L4 feasibility-recovery ladder and relaxation suggestions
//
// # Architecture
//
// One optimization run is a pure function of its inputs (space, surrogate,
// training reference, incumbent best, settings): the engine holds no
// process-wide state, so independent runs with different seeds execute
// concurrently without locking. Reproducibility comes from partitioned
// seeded RNG (rng.go) and stable score tie-breaking (selector.go).
//
// The pipeline stages are single-pass and side-effect free; the escalation
// controller in engine.go owns the only retry loop. Records intended for
// export live in the opt/trace sub-package.
//
// # Key Interfaces
//
// The extension points are single-method or small interfaces and function types:
//   - Surrogate: batched (mean, std) prediction for a candidate pool
//   - Constraint: hard feasibility predicate over declared variables
//   - EligibilityPredicate: caller-supplied policy mapping feasibility flags to batch eligibility
package opt
