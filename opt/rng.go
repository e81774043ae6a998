package opt

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RunKey uniquely identifies a reproducible optimization run.
// Two runs with the same RunKey and identical configuration MUST produce
// bit-for-bit identical candidate pools and batches.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

const (
	// SubsystemSampler is the RNG subsystem for candidate pool sampling.
	// Uses the master seed directly so a recorded seed replays the pool.
	SubsystemSampler = "sampler"
)

// SubsystemAttempt returns the subsystem name for retry attempt N.
// The EscalationController re-samples under attempt-specific streams so a
// retry never replays the pool that just failed.
func SubsystemAttempt(attempt int) string {
	return fmt.Sprintf("attempt_%d", attempt)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemSampler: uses the master seed directly, so the seed
//     recorded on each batch member reproduces the first pool as-is.
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Engine runs are single-goroutine; run
// independent runs (different keys) concurrently instead.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemSampler {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
