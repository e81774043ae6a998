package opt

import (
	"fmt"
	"math"
)

// Settings groups the per-run tunables of the engine. The zero value is not
// usable; start from DefaultSettings.
type Settings struct {
	Acquisition     Acquisition
	UCBKappa        float64
	UncertaintyMode UncertaintyMode

	BatchSize int
	// PoolSize is the raw oversampling pool drawn before filtering. The
	// sampler has no opinion on "enough"; this is entirely the caller's knob.
	PoolSize int
	Seed     int64

	// MinDiversityDistance is the pairwise distance floor for batch
	// admission; the controller may halve it once at L2.
	MinDiversityDistance float64

	// MaxRetries caps the controller's automatic re-sample attempts beyond
	// the first (retry cap for the L4 circuit breaker).
	MaxRetries int

	// HighSigma is the std threshold above which a prediction counts as
	// highly uncertain in the run summary.
	HighSigma float64

	Distance DistanceConfig

	// Eligible gates batch selection from the flag record; nil = AdmitAll.
	Eligible EligibilityPredicate
}

// DefaultSettings returns the engine defaults: EI acquisition, batch of 4,
// UCB kappa 1.96, deterministic uncertainty, seed 1729.
func DefaultSettings() Settings {
	return Settings{
		Acquisition:          AcqEI,
		UCBKappa:             DefaultUCBKappa,
		UncertaintyMode:      UncertaintyDeterministic,
		BatchSize:            4,
		PoolSize:             256,
		Seed:                 1729,
		MinDiversityDistance: 0.1,
		MaxRetries:           3,
		HighSigma:            1.0,
		Distance:             DefaultDistanceConfig(),
	}
}

// validate fails fast on the first configuration error, naming the offending
// field. Values are never silently clamped.
func (s Settings) validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size: must be > 0, got %d", s.BatchSize)
	}
	if s.PoolSize <= 0 {
		return fmt.Errorf("pool_size: must be > 0, got %d", s.PoolSize)
	}
	if s.PoolSize < s.BatchSize {
		return fmt.Errorf("pool_size: must be >= batch_size (%d < %d)", s.PoolSize, s.BatchSize)
	}
	if s.MinDiversityDistance < 0 || math.IsNaN(s.MinDiversityDistance) {
		return fmt.Errorf("min_diversity_distance: must be >= 0, got %v", s.MinDiversityDistance)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries: must be >= 0, got %d", s.MaxRetries)
	}
	if s.HighSigma < 0 || math.IsNaN(s.HighSigma) {
		return fmt.Errorf("high_sigma: must be >= 0, got %v", s.HighSigma)
	}
	if !IsValidAcquisition(s.Acquisition) {
		return fmt.Errorf("acquisition: unknown %q", s.Acquisition)
	}
	if !IsValidUncertaintyMode(s.UncertaintyMode) {
		return fmt.Errorf("uncertainty_mode: unknown %q", s.UncertaintyMode)
	}
	return nil
}
