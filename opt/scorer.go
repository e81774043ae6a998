package opt

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Acquisition identifies the acquisition function used for scoring.
type Acquisition string

const (
	// AcqEI is Expected Improvement over the incumbent best.
	AcqEI Acquisition = "ei"
	// AcqUCB is the Upper (maximize) / Lower (minimize) Confidence Bound.
	AcqUCB Acquisition = "ucb"
	// AcqPI is Probability of Improvement over the incumbent best.
	AcqPI Acquisition = "pi"
)

// validAcquisitions maps acquisition names to validity. Unexported to prevent mutation.
var validAcquisitions = map[Acquisition]bool{
	AcqEI:  true,
	AcqUCB: true,
	AcqPI:  true,
}

// IsValidAcquisition returns true if name is a recognized acquisition function.
func IsValidAcquisition(a Acquisition) bool { return validAcquisitions[a] }

// ValidAcquisitionNames returns sorted valid acquisition names.
func ValidAcquisitionNames() []string {
	names := make([]string, 0, len(validAcquisitions))
	for a := range validAcquisitions {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// ParseAcquisition parses a case-insensitive acquisition name ("EI", "ucb", ...).
func ParseAcquisition(s string) (Acquisition, error) {
	a := Acquisition(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidAcquisition(a) {
		return "", fmt.Errorf("unknown acquisition %q; valid: %s", s, strings.Join(ValidAcquisitionNames(), ", "))
	}
	return a, nil
}

// DefaultUCBKappa is the default exploration coefficient for UCB.
const DefaultUCBKappa = 1.96

// ScoreConfig parameterizes acquisition scoring.
type ScoreConfig struct {
	Acquisition Acquisition
	Objective   Objective
	// UCBKappa is the exploration coefficient; required for AcqUCB,
	// ignored otherwise. Must be finite and >= 0.
	UCBKappa float64
}

// validate fails fast on scorer misconfiguration.
func (c ScoreConfig) validate() error {
	if !IsValidAcquisition(c.Acquisition) {
		return fmt.Errorf("acquisition: unknown %q; valid: %s", c.Acquisition, strings.Join(ValidAcquisitionNames(), ", "))
	}
	if !IsValidObjective(c.Objective) {
		return fmt.Errorf("objective: unknown %q", c.Objective)
	}
	if c.Acquisition == AcqUCB && (c.UCBKappa < 0 || math.IsNaN(c.UCBKappa) || math.IsInf(c.UCBKappa, 0)) {
		return fmt.Errorf("ucb_kappa: must be finite and >= 0, got %v", c.UCBKappa)
	}
	return nil
}

// AcquisitionScore computes the acquisition value for one candidate from its
// predicted (mean, std) and the incumbent best. Higher is always better,
// regardless of objective direction: the improvement term is
// mean-incumbent when maximizing and incumbent-mean when minimizing, and UCB
// becomes the lower confidence bound (negated mean plus exploration) when
// minimizing.
//
// std == 0 is a first-class deterministic path, not an error:
//   - EI reduces to max(improvement, 0)
//   - PI reduces to 1 if improvement > 0, else 0
//   - UCB is unaffected (exploration term vanishes)
//
// Purely numeric; never touches the sampler or filter.
func AcquisitionScore(cfg ScoreConfig, mean, std, incumbentBest float64) float64 {
	improvement := mean - incumbentBest
	signedMean := mean
	if cfg.Objective == Minimize {
		improvement = incumbentBest - mean
		signedMean = -mean
	}

	switch cfg.Acquisition {
	case AcqUCB:
		return signedMean + cfg.UCBKappa*std
	case AcqEI:
		if std == 0 {
			return math.Max(improvement, 0)
		}
		z := improvement / std
		return improvement*distuv.UnitNormal.CDF(z) + std*distuv.UnitNormal.Prob(z)
	case AcqPI:
		if std == 0 {
			if improvement > 0 {
				return 1
			}
			return 0
		}
		return distuv.UnitNormal.CDF(improvement / std)
	default:
		// ScoreConfig.validate rejects unknown acquisitions before scoring.
		panic(fmt.Sprintf("unknown acquisition %q", cfg.Acquisition))
	}
}

// ScorePool fills Mean, Std and Score on each ScoredCandidate from the
// position-aligned prediction slices. len(means) and len(stds) must equal
// len(scored); the engine guarantees alignment via PredictWithUncertainty.
func ScorePool(scored []ScoredCandidate, means, stds []float64, cfg ScoreConfig, incumbentBest float64) ([]ScoredCandidate, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(means) != len(scored) || len(stds) != len(scored) {
		return nil, fmt.Errorf("%w: prediction length %d/%d does not match pool size %d", ErrSurrogateUnavailable, len(means), len(stds), len(scored))
	}
	for i := range scored {
		scored[i].Mean = means[i]
		scored[i].Std = stds[i]
		scored[i].Score = AcquisitionScore(cfg, means[i], stds[i], incumbentBest)
		scored[i].Acquisition = cfg.Acquisition
	}
	return scored, nil
}
