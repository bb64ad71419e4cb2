package referee

import (
	"fmt"
	"strings"

	"gocausal/internal/ccm"
	"gocausal/internal/errors"
)

// referee_factory.go
// Maps referee names to configured Go implementations.
// All referees use the centralized constants for their StandardUsed strings.

// RefereeConfig holds the configuration for a referee instance
type RefereeConfig struct {
	Name        string
	Category    RefereeCategory
	Description string
}

// defaultCCMOptions are the bootstrap settings every directional referee starts from
func defaultCCMOptions() ccm.Options {
	return ccm.Options{
		EmbeddingDim: CCM_EMBEDDING_DIM,
		Tau:          CAUSAL_LAG_DEFAULT,
		NumSamples:   CCM_BOOTSTRAP_SAMPLES,
	}
}

// gateOptions layers the non-zero fields of opts over the gate defaults
func gateOptions(opts ccm.Options) ccm.Options {
	merged := defaultCCMOptions()
	if opts.EmbeddingDim != 0 {
		merged.EmbeddingDim = opts.EmbeddingDim
	}
	if opts.Tau != 0 {
		merged.Tau = opts.Tau
	}
	if opts.NumSamples != 0 {
		merged.NumSamples = opts.NumSamples
	}
	merged.LibSizes = append([]int(nil), opts.LibSizes...)
	merged.Seed = opts.Seed
	merged.Workers = opts.Workers
	merged.ExcludeDegenerate = opts.ExcludeDegenerate
	merged.Logger = opts.Logger
	return merged
}

// GetRefereeFactory returns a referee by name with the gate defaults
func GetRefereeFactory(refereeName string) (Referee, error) {
	return NewReferee(refereeName, ccm.Options{})
}

// NewReferee returns a referee by name whose bootstrap settings come from
// opts, falling back to the gate defaults for zero fields.
func NewReferee(refereeName string, opts ccm.Options) (Referee, error) {
	switch strings.ToLower(strings.TrimSpace(refereeName)) {

	// DIRECTIONAL Category
	case "convergent_cross_mapping", "ccm":
		return &ConvergentCrossMapping{
			Direction: ccm.XCausesY,
			Options:   gateOptions(opts),
			MinRho:    GetConvergenceRho(),
		}, nil

	case "reverse_convergent_cross_mapping", "ccm_reverse":
		return &ConvergentCrossMapping{
			Direction: ccm.YCausesX,
			Options:   gateOptions(opts),
			MinRho:    GetConvergenceRho(),
		}, nil

	default:
		return nil, errors.Newf(errors.CodeNotFound, "unknown referee: %s", refereeName)
	}
}

// GetRefereeConfigs returns all available referee configurations for display
func GetRefereeConfigs() []RefereeConfig {
	return []RefereeConfig{
		{
			Name:        "Convergent_Cross_Mapping",
			Category:    CategoryDIRECTIONAL,
			Description: fmt.Sprintf("Manifold reconstruction ρ ≥ %.2f, X recovered from Y (E=%d, τ=%d)", CCM_CONVERGENCE_RHO, CCM_EMBEDDING_DIM, CAUSAL_LAG_DEFAULT),
		},
		{
			Name:        "Reverse_Convergent_Cross_Mapping",
			Category:    CategoryDIRECTIONAL,
			Description: fmt.Sprintf("Manifold reconstruction ρ ≥ %.2f, Y recovered from X (E=%d, τ=%d)", CCM_CONVERGENCE_RHO, CCM_EMBEDDING_DIM, CAUSAL_LAG_DEFAULT),
		},
	}
}

// ValidateStandardUsed checks if a StandardUsed string contains the correct constants
func ValidateStandardUsed(standardUsed, gateName string) bool {
	switch gateName {
	case "Convergent_Cross_Mapping", "Reverse_Convergent_Cross_Mapping":
		expected := fmt.Sprintf("CCM convergence (slope > %.3f)", ccm.ConvergenceSlopeThreshold)
		return strings.Contains(standardUsed, expected)

	default:
		return true // Unknown gates carry no standard to check
	}
}
