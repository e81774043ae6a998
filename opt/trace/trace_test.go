package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunTrace_FreshID(t *testing.T) {
	a := NewRunTrace()
	b := NewRunTrace()
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Empty(t, a.Attempts)
}

func TestRecordAttempt_PreservesOrder(t *testing.T) {
	rt := NewRunTrace()
	rt.RecordAttempt(AttemptRecord{Attempt: 0, Seed: 42, PoolSize: 50, Level: "L1"})
	rt.RecordAttempt(AttemptRecord{Attempt: 1, Seed: 99, PoolSize: 50, Level: "L2"})

	require.Len(t, rt.Attempts, 2)
	assert.Equal(t, 0, rt.Attempts[0].Attempt)
	assert.Equal(t, int64(99), rt.Attempts[1].Seed)
}

func TestSummarize_Aggregates(t *testing.T) {
	rt := NewRunTrace()
	rt.RecordAttempt(AttemptRecord{
		Attempt: 0, PoolSize: 50, ConstraintRemoved: 50, Level: "L3",
	})
	rt.RecordAttempt(AttemptRecord{
		Attempt: 1, PoolSize: 50, ConstraintRemoved: 10,
		SafetyFlagged: 5, NoveltyFlagged: 3, Eligible: 40,
		Selected: 3, Level: "L3",
	})

	s := Summarize(rt, 2.5, true, 0.25)
	assert.Equal(t, rt.RunID, s.RunID)
	assert.Equal(t, 2, s.Attempts)
	assert.Equal(t, 100, s.TotalSampled)
	assert.Equal(t, 60, s.TotalDropped)
	assert.Equal(t, 8, s.TotalFlagged)
	assert.Equal(t, "L3", s.FinalLevel)
	assert.Equal(t, 3, s.Selected)
	assert.Equal(t, 2.5, s.DiversityMin)
	assert.True(t, s.HasDiversity)
	assert.Equal(t, 0.25, s.UncertainFrac)
}

func TestSummarize_NilAndEmptyTraces(t *testing.T) {
	s := Summarize(nil, 0, false, 0)
	require.NotNil(t, s)
	assert.Zero(t, s.Attempts)
	assert.Empty(t, s.FinalLevel)

	s = Summarize(NewRunTrace(), 0, false, 0)
	assert.Zero(t, s.Attempts)
	assert.Empty(t, s.FinalLevel)
}
