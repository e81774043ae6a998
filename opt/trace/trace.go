package trace

import "github.com/google/uuid"

// RunTrace collects attempt records during one optimization run.
// Intended for serialization by the caller's artifact layer.
type RunTrace struct {
	RunID       string
	Attempts    []AttemptRecord
	Relaxations []RelaxationRecord
}

// NewRunTrace creates a RunTrace with a fresh run ID.
func NewRunTrace() *RunTrace {
	return &RunTrace{
		RunID:    uuid.NewString(),
		Attempts: make([]AttemptRecord, 0),
	}
}

// RecordAttempt appends one controller-iteration record.
func (rt *RunTrace) RecordAttempt(record AttemptRecord) {
	rt.Attempts = append(rt.Attempts, record)
}

// RecordRelaxation appends one suggested relaxation.
func (rt *RunTrace) RecordRelaxation(record RelaxationRecord) {
	rt.Relaxations = append(rt.Relaxations, record)
}
