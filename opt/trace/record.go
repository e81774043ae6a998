// Package trace provides run-trace recording for optimization audit trails.
// It stores pure data types and has no dependencies on opt/.
package trace

// AttemptRecord captures one controller iteration: what was sampled, what
// each filter stage removed or flagged, and what selection admitted.
type AttemptRecord struct {
	Attempt           int
	Seed              int64
	PoolSize          int
	ConstraintRemoved int
	SafetyFlagged     int
	NoveltyFlagged    int
	Eligible          int
	DiversityDistance float64 // threshold in effect for this attempt
	Selected          int
	Level             string // ladder level after this attempt
}

// RelaxationRecord captures a suggested (never auto-applied) relaxation.
type RelaxationRecord struct {
	Kind    string
	Target  string
	Message string
}
