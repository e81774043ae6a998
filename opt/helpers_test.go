package opt

import "math"

// twoVarSpace has two continuous variables bounded [0,10] and [0,1],
// maximize, no constraints, permissive safety thresholds.
func twoVarSpace() *DecisionSpace {
	return &DecisionSpace{
		Variables: []DecisionVariable{
			{Name: "x0", Kind: KindContinuous, Min: 0, Max: 10},
			{Name: "x1", Kind: KindContinuous, Min: 0, Max: 1},
		},
		Safety:    DefaultSafetyThresholds(),
		Objective: Maximize,
	}
}

// mixedSpace has one numeric and one categorical variable.
func mixedSpace() *DecisionSpace {
	return &DecisionSpace{
		Variables: []DecisionVariable{
			{Name: "x", Kind: KindContinuous, Min: 0, Max: 1},
			{Name: "cat", Kind: KindCategorical, Levels: []string{"a", "b", "c"}},
		},
		Safety:    DefaultSafetyThresholds(),
		Objective: Maximize,
	}
}

func numCandidate(pairs map[string]float64) Candidate {
	c := NewCandidate()
	for k, v := range pairs {
		c.Numeric[k] = v
	}
	return c
}

func mixedCandidate(x float64, level string) Candidate {
	c := NewCandidate()
	c.Numeric["x"] = x
	c.Categorical["cat"] = level
	return c
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
