package opt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenSurrogate simulates external model failures.
type brokenSurrogate struct {
	err       error
	meanCount int // predictions returned regardless of pool size
}

func (b brokenSurrogate) Predict(candidates []Candidate) ([]float64, []float64, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	return make([]float64, b.meanCount), nil, nil
}

func poolOf(n int) []Candidate {
	pool := make([]Candidate, n)
	for i := range pool {
		pool[i] = numCandidate(map[string]float64{"x0": float64(i)})
	}
	return pool
}

func TestPredictWithUncertainty_AdapterErrorWrapped(t *testing.T) {
	_, _, err := PredictWithUncertainty(brokenSurrogate{err: errors.New("connection reset")}, poolOf(3), UncertaintyNative)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSurrogateUnavailable)
	assert.ErrorContains(t, err, "connection reset")
}

func TestPredictWithUncertainty_ShapeMismatch(t *testing.T) {
	_, _, err := PredictWithUncertainty(brokenSurrogate{meanCount: 2}, poolOf(3), UncertaintyNative)
	assert.ErrorIs(t, err, ErrSurrogateUnavailable)
}

func TestPredictWithUncertainty_NilStdsFallToZero(t *testing.T) {
	// Models without uncertainty (stds == nil) must produce all-zero stds
	// so the scorer takes its deterministic path uniformly.
	model := FuncSurrogate{Fn: func(c Candidate) (float64, float64) {
		return c.Numeric["x0"], -1
	}}

	means, stds, err := PredictWithUncertainty(model, poolOf(4), UncertaintyNative)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, means)
	assert.Equal(t, []float64{0, 0, 0, 0}, stds)
}

func TestPredictWithUncertainty_DeterministicModeZeroesStds(t *testing.T) {
	model := ConstantSurrogate{Mean: 5, Std: 1}
	_, stds, err := PredictWithUncertainty(model, poolOf(3), UncertaintyDeterministic)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, stds)
}

func TestPredictWithUncertainty_ApproxFloor(t *testing.T) {
	// Approx mode synthesizes sigma from the spread of the means and never
	// returns a sigma below the epsilon floor.
	model := FuncSurrogate{Fn: func(c Candidate) (float64, float64) {
		return c.Numeric["x0"] * 2, -1
	}}

	means, stds, err := PredictWithUncertainty(model, poolOf(5), UncertaintyApprox)
	require.NoError(t, err)
	require.Len(t, stds, len(means))
	for i, s := range stds {
		assert.GreaterOrEqual(t, s, approxEpsilon, "std %d below floor", i)
	}
	// The extremes sit farther from the median than the center point.
	assert.Greater(t, stds[0], stds[2])
	assert.Greater(t, stds[4], stds[2])
}

func TestPredictWithUncertainty_EmptyPool(t *testing.T) {
	means, stds, err := PredictWithUncertainty(ConstantSurrogate{Mean: 1}, nil, UncertaintyNative)
	require.NoError(t, err)
	assert.Nil(t, means)
	assert.Nil(t, stds)
}

func TestPredictWithUncertainty_UnknownMode(t *testing.T) {
	_, _, err := PredictWithUncertainty(ConstantSurrogate{}, poolOf(1), UncertaintyMode("psychic"))
	assert.ErrorContains(t, err, "uncertainty mode")
}

func TestConstantSurrogate_StdZeroReportsNoUncertainty(t *testing.T) {
	means, stds, err := ConstantSurrogate{Mean: 2}.Predict(poolOf(3))
	require.NoError(t, err)
	assert.Len(t, means, 3)
	assert.Nil(t, stds)
}
