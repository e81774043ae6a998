package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionedRNG_SamplerUsesMasterSeed(t *testing.T) {
	p := NewPartitionedRNG(NewRunKey(42))
	q := NewPartitionedRNG(NewRunKey(42))
	assert.Equal(t, p.ForSubsystem(SubsystemSampler).Int63(), q.ForSubsystem(SubsystemSampler).Int63())
	assert.Equal(t, RunKey(42), p.Key())
}

func TestPartitionedRNG_SubsystemsAreIsolated(t *testing.T) {
	p := NewPartitionedRNG(NewRunKey(42))
	a := p.ForSubsystem(SubsystemAttempt(1)).Int63()

	// Draining one subsystem's stream must not advance another's.
	q := NewPartitionedRNG(NewRunKey(42))
	for i := 0; i < 100; i++ {
		q.ForSubsystem(SubsystemSampler).Int63()
	}
	assert.Equal(t, a, q.ForSubsystem(SubsystemAttempt(1)).Int63())
}

func TestPartitionedRNG_SameSubsystemIsCached(t *testing.T) {
	p := NewPartitionedRNG(NewRunKey(7))
	assert.Same(t, p.ForSubsystem(SubsystemAttempt(2)), p.ForSubsystem(SubsystemAttempt(2)))
}

func TestSubsystemAttemptNames(t *testing.T) {
	assert.Equal(t, "attempt_1", SubsystemAttempt(1))
	assert.NotEqual(t, SubsystemAttempt(1), SubsystemAttempt(2))
}
