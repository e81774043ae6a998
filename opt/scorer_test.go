package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Closed-form standard normal values at z=1.
const (
	phiAt1 = 0.24197072451914337 // pdf
	PhiAt1 = 0.8413447460685429  // cdf
)

func TestAcquisitionScore_ClosedForm(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ScoreConfig
		mean      float64
		std       float64
		incumbent float64
		want      float64
	}{
		{"EI maximize z=1", ScoreConfig{AcqEI, Maximize, 0}, 5, 1, 4, 1*PhiAt1 + 1*phiAt1},
		{"EI minimize z=1", ScoreConfig{AcqEI, Minimize, 0}, 3, 1, 4, 1*PhiAt1 + 1*phiAt1},
		{"EI maximize z=-1", ScoreConfig{AcqEI, Maximize, 0}, 3, 1, 4, -1*(1-PhiAt1) + 1*phiAt1},
		{"PI maximize z=1", ScoreConfig{AcqPI, Maximize, 0}, 5, 1, 4, PhiAt1},
		{"PI minimize z=1", ScoreConfig{AcqPI, Minimize, 0}, 3, 1, 4, PhiAt1},
		{"UCB maximize", ScoreConfig{AcqUCB, Maximize, 1.96}, 5, 1, 4, 6.96},
		{"UCB minimize", ScoreConfig{AcqUCB, Minimize, 1.96}, 5, 1, 4, -3.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AcquisitionScore(tt.cfg, tt.mean, tt.std, tt.incumbent)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAcquisitionScore_ZeroStdFallbacks(t *testing.T) {
	// The std == 0 path is a named deterministic edge case: no randomness,
	// no panic, exact values.
	tests := []struct {
		name      string
		cfg       ScoreConfig
		mean      float64
		incumbent float64
		want      float64
	}{
		{"EI positive improvement", ScoreConfig{AcqEI, Maximize, 0}, 5, 4, 1},
		{"EI no improvement", ScoreConfig{AcqEI, Maximize, 0}, 3, 4, 0},
		{"EI minimize improvement", ScoreConfig{AcqEI, Minimize, 0}, 3, 4, 1},
		{"PI positive improvement", ScoreConfig{AcqPI, Maximize, 0}, 5, 4, 1},
		{"PI no improvement", ScoreConfig{AcqPI, Maximize, 0}, 4, 4, 0},
		{"UCB unaffected", ScoreConfig{AcqUCB, Maximize, 1.96}, 5, 4, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AcquisitionScore(tt.cfg, tt.mean, 0, tt.incumbent)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAcquisitionScore_DirectionConsistency(t *testing.T) {
	// Under minimize, a lower mean must never score worse than a higher
	// mean at equal std, for every acquisition kind.
	for _, acq := range []Acquisition{AcqEI, AcqUCB, AcqPI} {
		cfg := ScoreConfig{Acquisition: acq, Objective: Minimize, UCBKappa: 1.0}
		low := AcquisitionScore(cfg, 2, 0.5, 4)
		high := AcquisitionScore(cfg, 6, 0.5, 4)
		assert.GreaterOrEqual(t, low, high, "acquisition %s ignores minimize direction", acq)
	}
}

func TestScorePool_ZeroStdTotalOrder(t *testing.T) {
	// Scenario D shape: no uncertainty anywhere; the scorer must still
	// produce a deterministic total order with no error.
	scored := []ScoredCandidate{
		{Candidate: numCandidate(map[string]float64{"x0": 1})},
		{Candidate: numCandidate(map[string]float64{"x0": 2})},
		{Candidate: numCandidate(map[string]float64{"x0": 3})},
	}
	means := []float64{4.5, 6.0, 5.0}
	stds := []float64{0, 0, 0}

	cfg := ScoreConfig{Acquisition: AcqEI, Objective: Maximize}
	out, err := ScorePool(scored, means, stds, cfg, 4)
	require.NoError(t, err)

	scores := []float64{out[0].Score, out[1].Score, out[2].Score}
	assert.Equal(t, []float64{0.5, 2.0, 1.0}, scores)
}

func TestScorePool_LengthMismatch(t *testing.T) {
	scored := []ScoredCandidate{{Candidate: numCandidate(map[string]float64{"x0": 1})}}
	_, err := ScorePool(scored, []float64{1, 2}, []float64{0, 0}, ScoreConfig{AcqEI, Maximize, 0}, 0)
	assert.ErrorIs(t, err, ErrSurrogateUnavailable)
}

func TestScoreConfig_Validate(t *testing.T) {
	assert.ErrorContains(t, ScoreConfig{Acquisition: "magic", Objective: Maximize}.validate(), "acquisition")
	assert.ErrorContains(t, ScoreConfig{Acquisition: AcqEI, Objective: "up"}.validate(), "objective")
	assert.ErrorContains(t, ScoreConfig{Acquisition: AcqUCB, Objective: Maximize, UCBKappa: math.NaN()}.validate(), "ucb_kappa")
	assert.NoError(t, ScoreConfig{Acquisition: AcqPI, Objective: Minimize}.validate())
}

func TestParseAcquisition(t *testing.T) {
	acq, err := ParseAcquisition("EI")
	require.NoError(t, err)
	assert.Equal(t, AcqEI, acq)

	acq, err = ParseAcquisition(" ucb ")
	require.NoError(t, err)
	assert.Equal(t, AcqUCB, acq)

	_, err = ParseAcquisition("qei")
	assert.ErrorContains(t, err, "valid: ei, pi, ucb")
}
