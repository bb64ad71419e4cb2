package referee

// referee_const.go
//
// Hardcoded standards for the directional gates. These thresholds decide
// when a cross-map skill curve counts as evidence of causal coupling.

import (
	"fmt"

	"gocausal/internal/ccm"
	"gocausal/internal/errors"
)

// ============================================================================
// DIRECTIONAL (Causal Vectoring) - Guards against circular feedback
// ============================================================================

const (
	// CCM_CONVERGENCE_RHO: Minimum manifold reconstruction correlation required
	// for Convergent Cross Mapping. The best mean cross-map skill along the
	// library curve must reach this value.
	CCM_CONVERGENCE_RHO = 0.75

	// CCM_DIRECTIONAL_MARGIN: Skill advantage of the tested direction over the
	// reverse one below which the coupling is reported as bidirectional.
	CCM_DIRECTIONAL_MARGIN = 0.1

	// CCM_BOOTSTRAP_SAMPLES: Random library draws per library size.
	CCM_BOOTSTRAP_SAMPLES = 100

	// CCM_EMBEDDING_DIM: Delay coordinates per reconstructed state.
	CCM_EMBEDDING_DIM = 3

	// CAUSAL_LAG_DEFAULT: Default delay (τ) between embedding coordinates.
	CAUSAL_LAG_DEFAULT = 1

	// CCM_MIN_POINTS: Shortest series a directional gate will look at.
	CCM_MIN_POINTS = 10
)

// ============================================================================
// UTILITY FUNCTIONS - Access to Standards
// ============================================================================

// GetConvergenceRho returns the minimum cross-map skill for a pass
func GetConvergenceRho() float64 {
	return CCM_CONVERGENCE_RHO
}

// ValidateConstants performs runtime validation of all constants
func ValidateConstants() error {
	if CCM_CONVERGENCE_RHO <= 0 || CCM_CONVERGENCE_RHO >= 1 {
		return errors.InternalError(fmt.Sprintf("CCM_CONVERGENCE_RHO out of range: %f not in (0,1)", CCM_CONVERGENCE_RHO))
	}
	if CCM_BOOTSTRAP_SAMPLES < 1 {
		return errors.InternalError(fmt.Sprintf("CCM_BOOTSTRAP_SAMPLES too low: %d < 1", CCM_BOOTSTRAP_SAMPLES))
	}
	if CCM_EMBEDDING_DIM < 1 || CCM_EMBEDDING_DIM > ccm.MaxEmbeddingDim {
		return errors.InternalError(fmt.Sprintf("CCM_EMBEDDING_DIM out of range: %d", CCM_EMBEDDING_DIM))
	}
	if CCM_MIN_POINTS < CCM_EMBEDDING_DIM+2 {
		return errors.InternalError(fmt.Sprintf("CCM_MIN_POINTS too low for embedding dimension %d: %d", CCM_EMBEDDING_DIM, CCM_MIN_POINTS))
	}
	return nil
}

// GetAllThresholds returns a map of all threshold constants for logging/debugging
func GetAllThresholds() map[string]float64 {
	return map[string]float64{
		"CCM_CONVERGENCE_RHO":    CCM_CONVERGENCE_RHO,
		"CCM_DIRECTIONAL_MARGIN": CCM_DIRECTIONAL_MARGIN,
		"CCM_CONVERGENCE_SLOPE":  ccm.ConvergenceSlopeThreshold,
		"CCM_BOOTSTRAP_SAMPLES":  CCM_BOOTSTRAP_SAMPLES,
		"CCM_EMBEDDING_DIM":      CCM_EMBEDDING_DIM,
		"CAUSAL_LAG_DEFAULT":     CAUSAL_LAG_DEFAULT,
		"CCM_MIN_POINTS":         CCM_MIN_POINTS,
	}
}
