package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doe-optimizer/doe-optimizer/opt"
)

func TestEligibilityPredicate(t *testing.T) {
	pred, err := eligibilityPredicate("")
	require.NoError(t, err)
	assert.True(t, pred(opt.Flags{}))

	pred, err = eligibilityPredicate("safe")
	require.NoError(t, err)
	assert.False(t, pred(opt.Flags{NoveltyOK: true}))
	assert.True(t, pred(opt.Flags{SafetyOK: true}))

	pred, err = eligibilityPredicate("safe-novel")
	require.NoError(t, err)
	assert.False(t, pred(opt.Flags{SafetyOK: true}))
	assert.True(t, pred(opt.Flags{SafetyOK: true, NoveltyOK: true}))

	_, err = eligibilityPredicate("strict")
	assert.ErrorContains(t, err, `"strict"`)
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "-", flagString(opt.Flags{}))
	assert.Equal(t, "safe", flagString(opt.Flags{SafetyOK: true}))
	assert.Equal(t, "safe,novel,diverse", flagString(opt.Flags{SafetyOK: true, NoveltyOK: true, Diverse: true}))
}
