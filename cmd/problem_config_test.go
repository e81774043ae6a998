package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doe-optimizer/doe-optimizer/opt"
)

const sampleProblemYAML = `
version: "1"
objective: maximize
incumbent_best: 4.0
variables:
  - name: temperature
    kind: continuous
    min: 20
    max: 90
    unit: C
  - name: cycles
    kind: integer
    min: 1
    max: 10
  - name: solvent
    kind: categorical
    levels: [water, ethanol, acetone]
constraints:
  - id: temp-below-cycles
    type: compare
    left: temperature
    right: cycles
    relation: ">="
  - id: budget
    type: linear-sum
    variables: [temperature, cycles]
    relation: "<="
    bound: 95
  - id: fixed-cycles
    type: lock
    variable: cycles
    value: 5
  - id: green-solvents
    type: allowed-levels
    variable: solvent
    allowed: [water, ethanol]
safety:
  min_training_distance: 0.05
  max_training_distance: 0.8
  limits:
    - variable: temperature
      high: 85
training_reference:
  - temperature: 45.5
    cycles: 3
    solvent: water
settings:
  acquisition: ucb
  batch_size: 2
  seed: 7
  distance_weights:
    solvent: 0.25
surrogate:
  kind: constant
  mean: 5
  std: 1
`

func writeProblem(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProblem_FullDocument(t *testing.T) {
	cfg, err := LoadProblem(writeProblem(t, sampleProblemYAML))
	require.NoError(t, err)

	assert.Equal(t, "maximize", cfg.Objective)
	assert.Equal(t, 4.0, cfg.IncumbentBest)
	assert.Len(t, cfg.Variables, 3)
	assert.Len(t, cfg.Constraints, 4)
	require.Len(t, cfg.Safety.Limits, 1)
	assert.Nil(t, cfg.Safety.Limits[0].Low, "unset limit side stays nil")
	assert.Equal(t, 85.0, *cfg.Safety.Limits[0].High)
}

func TestLoadProblem_UnknownFieldIsAnError(t *testing.T) {
	_, err := LoadProblem(writeProblem(t, `
objective: maximize
variabels:
  - name: x
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "variabels")
}

func TestLoadProblem_MissingFile(t *testing.T) {
	_, err := LoadProblem(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read problem file")
}

func TestBuildSpace_MapsEverything(t *testing.T) {
	cfg, err := LoadProblem(writeProblem(t, sampleProblemYAML))
	require.NoError(t, err)
	space, err := cfg.BuildSpace()
	require.NoError(t, err)
	require.Empty(t, space.Validate())

	temp, ok := space.Variable("temperature")
	require.True(t, ok)
	assert.Equal(t, opt.KindContinuous, temp.Kind)
	assert.Equal(t, "C", temp.Unit)

	solvent, ok := space.Variable("solvent")
	require.True(t, ok)
	assert.Equal(t, opt.KindCategorical, solvent.Kind)
	assert.Equal(t, []string{"water", "ethanol", "acetone"}, solvent.Levels)

	require.Len(t, space.Constraints, 4)
	assert.Equal(t, "temp-below-cycles", space.Constraints[0].ID())
	assert.Equal(t, "budget", space.Constraints[1].ID())

	assert.Equal(t, 0.05, space.Safety.MinTrainingDistance)
	assert.Equal(t, 0.8, space.Safety.MaxTrainingDistance)
	require.Len(t, space.Safety.Limits, 1)
	assert.True(t, space.Safety.Limits[0].Low < -1e300, "unset low defaults to -Inf")
	assert.Equal(t, 85.0, space.Safety.Limits[0].High)
}

func TestBuildSpace_UnknownConstraintType(t *testing.T) {
	cfg := &ProblemConfig{
		Constraints: []ConstraintConfig{{ID: "bad", Type: "quadratic"}},
	}
	_, err := cfg.BuildSpace()
	require.Error(t, err)
	assert.ErrorContains(t, err, `"quadratic"`)
}

func TestBuildTrainingReference_TypedRows(t *testing.T) {
	cfg, err := LoadProblem(writeProblem(t, sampleProblemYAML))
	require.NoError(t, err)
	space, err := cfg.BuildSpace()
	require.NoError(t, err)

	refs, err := cfg.BuildTrainingReference(space)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	temp, ok := refs[0].NumericValue("temperature")
	require.True(t, ok)
	assert.Equal(t, 45.5, temp)
	cycles, ok := refs[0].NumericValue("cycles")
	require.True(t, ok)
	assert.Equal(t, 3.0, cycles, "integer rows widen to float64")
	level, ok := refs[0].Level("solvent")
	require.True(t, ok)
	assert.Equal(t, "water", level)
}

func TestBuildTrainingReference_RejectsBadRows(t *testing.T) {
	cfg, err := LoadProblem(writeProblem(t, sampleProblemYAML))
	require.NoError(t, err)
	space, err := cfg.BuildSpace()
	require.NoError(t, err)

	cfg.TrainingReference = []map[string]any{{"pressure": 3.0}}
	_, err = cfg.BuildTrainingReference(space)
	assert.ErrorContains(t, err, `undeclared variable "pressure"`)

	cfg.TrainingReference = []map[string]any{{"temperature": "hot"}}
	_, err = cfg.BuildTrainingReference(space)
	assert.ErrorContains(t, err, "expected number")

	cfg.TrainingReference = []map[string]any{{"solvent": 7}}
	_, err = cfg.BuildTrainingReference(space)
	assert.ErrorContains(t, err, "expected level string")
}

func TestBuildSettings_MergesOverDefaults(t *testing.T) {
	cfg, err := LoadProblem(writeProblem(t, sampleProblemYAML))
	require.NoError(t, err)

	s, err := cfg.BuildSettings()
	require.NoError(t, err)

	def := opt.DefaultSettings()
	assert.Equal(t, opt.AcqUCB, s.Acquisition)
	assert.Equal(t, 2, s.BatchSize)
	assert.Equal(t, int64(7), s.Seed)
	assert.Equal(t, map[string]float64{"solvent": 0.25}, s.Distance.Weights)

	// Everything the file omits keeps the engine default.
	assert.Equal(t, def.PoolSize, s.PoolSize)
	assert.Equal(t, def.UCBKappa, s.UCBKappa)
	assert.Equal(t, def.MaxRetries, s.MaxRetries)
	assert.Equal(t, def.UncertaintyMode, s.UncertaintyMode)
}

func TestBuildSettings_RejectsUnknownAcquisition(t *testing.T) {
	cfg := &ProblemConfig{Settings: SettingsConfig{Acquisition: "thompson"}}
	_, err := cfg.BuildSettings()
	assert.ErrorContains(t, err, "thompson")
}

func TestBuildSurrogate(t *testing.T) {
	cfg := &ProblemConfig{Surrogate: SurrogateConfig{Kind: "constant", Mean: 5, Std: 1}}
	model, err := cfg.BuildSurrogate()
	require.NoError(t, err)
	assert.Equal(t, opt.ConstantSurrogate{Mean: 5, Std: 1}, model)

	cfg.Surrogate.Kind = "gp"
	_, err = cfg.BuildSurrogate()
	assert.ErrorContains(t, err, `"gp"`)
}
