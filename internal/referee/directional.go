package referee

import (
	"context"
	"fmt"

	"gocausal/internal/ccm"
)

// ConvergentCrossMapping gates a hypothesis "X drives Y" (or the reverse) on
// cross-map skill that both converges with library size and ends up strong.
type ConvergentCrossMapping struct {
	Direction ccm.Direction // defaults to ccm.XCausesY
	Options   ccm.Options
	MinRho    float64 // defaults to CCM_CONVERGENCE_RHO
}

// Execute tests for causal influence using Convergent Cross Mapping.
// metadata may carry "seed" to make the bootstrap reproducible.
func (c *ConvergentCrossMapping) Execute(x, y []float64, metadata map[string]interface{}) RefereeResult {
	gateName := "Convergent_Cross_Mapping"
	if c.Direction == ccm.YCausesX {
		gateName = "Reverse_Convergent_Cross_Mapping"
	}

	if err := ValidateData(x, y); err != nil {
		return RefereeResult{
			GateName:      gateName,
			Passed:        false,
			FailureReason: err.Error(),
		}
	}

	minRho := c.MinRho
	if minRho == 0 {
		minRho = GetConvergenceRho()
	}
	forwardDir := c.Direction
	if forwardDir == "" {
		forwardDir = ccm.XCausesY
	}

	opts := c.Options
	if seed, ok := seedFromMetadata(metadata); ok {
		opts.Seed = seed
	}

	analysis, err := ccm.New(x, y, opts)
	if err != nil {
		return RefereeResult{
			GateName:      gateName,
			Passed:        false,
			FailureReason: err.Error(),
		}
	}

	both, err := analysis.Bidirectional(context.Background())
	if err != nil {
		return RefereeResult{
			GateName:      gateName,
			Passed:        false,
			FailureReason: err.Error(),
		}
	}

	forward, reverse := both.XCausesY, both.YCausesX
	if forwardDir == ccm.YCausesX {
		forward, reverse = reverse, forward
	}

	strength := peakSkill(forward)
	reverseStrength := peakSkill(reverse)
	advantage := strength - reverseStrength

	passed := forward.Convergent && strength >= minRho

	failureReason := ""
	if !passed {
		if !forward.Convergent {
			failureReason = fmt.Sprintf("No convergent cross-mapping detected (slope=%.5f, need >%.3f)", forward.Slope, ccm.ConvergenceSlopeThreshold)
		} else {
			failureReason = fmt.Sprintf("Cross-mapping too weak (ρ=%.3f, need ≥%.2f)", strength, minRho)
		}
	}

	bidirectional := 0.0
	if reverse.Convergent && advantage < CCM_DIRECTIONAL_MARGIN {
		bidirectional = 1.0
	}

	return RefereeResult{
		GateName:      gateName,
		Passed:        passed,
		Statistic:     strength,
		StandardUsed:  fmt.Sprintf("CCM convergence (slope > %.3f) with ρ ≥ %.2f", ccm.ConvergenceSlopeThreshold, minRho),
		FailureReason: failureReason,
		Details: map[string]float64{
			"slope":         forward.Slope,
			"reverse_rho":   reverseStrength,
			"reverse_slope": reverse.Slope,
			"advantage":     advantage,
			"bidirectional": bidirectional,
			"library_sizes": float64(len(forward.Results)),
		},
	}
}

// peakSkill is the best mean cross-map correlation along the library curve.
func peakSkill(res *ccm.DirectionResult) float64 {
	best := 0.0
	for _, r := range res.Results {
		if r.MeanCorrelation > best {
			best = r.MeanCorrelation
		}
	}
	return best
}

func seedFromMetadata(metadata map[string]interface{}) (int64, bool) {
	switch v := metadata["seed"].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
