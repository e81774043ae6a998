package opt

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// SamplePool draws up to n candidates from the space, deterministically for a
// fixed (space, n, seed): the same inputs always yield the same sequence, in
// the same order, across processes.
//
// Numeric dimensions use Latin-hypercube strata (one stratum per row, each
// column independently permuted) so the pool covers the box evenly even for
// small n. Integer dimensions are snapped to the unit grid and clamped to
// bounds. Categorical dimensions are drawn uniformly over the declared
// levels, minus any levels excluded by AllowedLevelsConstraints.
//
// Sampled candidates are NOT pre-filtered against Constraints or
// SafetyThresholds; filtering is a separate stage. Duplicate rows (possible
// after integer snapping or with few categorical combinations) are dropped,
// so fewer than n candidates may be returned.
func SamplePool(space *DecisionSpace, n int, seed int64) ([]Candidate, error) {
	if n <= 0 {
		return nil, fmt.Errorf("pool size must be > 0, got %d", n)
	}
	for _, v := range space.Variables {
		if v.Kind == KindCategorical && len(effectiveLevels(space, v)) == 0 {
			return nil, fmt.Errorf("categorical variable %q has no levels left after constraints", v.Name)
		}
	}

	rng := NewPartitionedRNG(NewRunKey(seed)).ForSubsystem(SubsystemSampler)

	var numeric []DecisionVariable
	var categorical []DecisionVariable
	for _, v := range space.Variables {
		if v.IsNumeric() {
			numeric = append(numeric, v)
		} else {
			categorical = append(categorical, v)
		}
	}

	// Latin-hypercube block: strata (i + u) / n, independently permuted per column.
	columns := make([][]float64, len(numeric))
	for j, v := range numeric {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = (float64(i) + rng.Float64()) / float64(n)
		}
		rng.Shuffle(n, func(a, b int) { col[a], col[b] = col[b], col[a] })
		for i := 0; i < n; i++ {
			col[i] = v.Min + col[i]*v.Range()
			if v.Kind == KindInteger {
				col[i] = snapToGrid(col[i], v.Min, v.Max)
			}
		}
		columns[j] = col
	}

	pool := make([]Candidate, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		c := NewCandidate()
		for j, v := range numeric {
			c.Numeric[v.Name] = columns[j][i]
		}
		for _, v := range categorical {
			levels := effectiveLevels(space, v)
			c.Categorical[v.Name] = levels[rng.Intn(len(levels))]
		}
		key := c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		pool = append(pool, c)
	}

	logrus.Debugf("sampled pool: %d unique candidates of %d requested (seed=%d)", len(pool), n, seed)
	return pool, nil
}

// snapToGrid rounds v to the nearest integer and clamps it to [min, max].
func snapToGrid(v, min, max float64) float64 {
	v = math.Round(v)
	if v < min {
		v = math.Ceil(min)
	}
	if v > max {
		v = math.Floor(max)
	}
	return v
}
