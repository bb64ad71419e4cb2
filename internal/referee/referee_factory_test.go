package referee

import (
	"testing"

	"gocausal/internal/ccm"
	"gocausal/internal/errors"
)

func TestGetRefereeFactory(t *testing.T) {
	tests := []struct {
		name        string
		refereeName string
		expectError bool
	}{
		{"Convergent_Cross_Mapping", "convergent_cross_mapping", false},
		{"CCM short name", "  CCM ", false},
		{"Reverse CCM", "ccm_reverse", false},
		{"Invalid referee", "invalid_referee", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			referee, err := GetRefereeFactory(tt.refereeName)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for invalid referee %s, got nil", tt.refereeName)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for referee %s: %v", tt.refereeName, err)
				return
			}

			if referee == nil {
				t.Errorf("Expected non-nil referee for %s", tt.refereeName)
			}
		})
	}
}

func TestGetRefereeConfigs(t *testing.T) {
	configs := GetRefereeConfigs()

	if len(configs) == 0 {
		t.Error("Expected non-empty referee configs")
		return
	}

	for _, config := range configs {
		if GetCategoryForReferee(config.Name) != config.Category {
			t.Errorf("Category mismatch for %s", config.Name)
		}
		if _, err := GetRefereeFactory(config.Name); err != nil {
			t.Errorf("Config %s has no factory: %v", config.Name, err)
		}
	}
}

func TestValidateConstants(t *testing.T) {
	if err := ValidateConstants(); err != nil {
		t.Fatalf("Constants failed validation: %v", err)
	}

	if GetAllThresholds()["CCM_CONVERGENCE_RHO"] != GetConvergenceRho() {
		t.Error("Threshold map out of sync with CCM_CONVERGENCE_RHO")
	}
}

func TestNewRefereeOptions(t *testing.T) {
	ref, err := NewReferee("ccm_reverse", ccm.Options{EmbeddingDim: 2, LibSizes: []int{10, 20}, Seed: 7})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	gate, ok := ref.(*ConvergentCrossMapping)
	if !ok {
		t.Fatalf("Expected *ConvergentCrossMapping, got %T", ref)
	}
	if gate.Direction != ccm.YCausesX {
		t.Errorf("Expected reverse direction, got %s", gate.Direction)
	}
	if gate.Options.EmbeddingDim != 2 || gate.Options.Seed != 7 || len(gate.Options.LibSizes) != 2 {
		t.Errorf("Options not applied: %+v", gate.Options)
	}
	if gate.Options.Tau != CAUSAL_LAG_DEFAULT || gate.Options.NumSamples != CCM_BOOTSTRAP_SAMPLES {
		t.Errorf("Zero fields should keep gate defaults: %+v", gate.Options)
	}
	if gate.MinRho != GetConvergenceRho() {
		t.Errorf("Expected MinRho %.2f, got %.2f", GetConvergenceRho(), gate.MinRho)
	}
}

func TestNewRefereeUnknown(t *testing.T) {
	_, err := NewReferee("granger", ccm.Options{})
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Expected %s, got %v", errors.CodeNotFound, err)
	}
}

func TestValidateDataCodes(t *testing.T) {
	if err := ValidateData(make([]float64, 20), make([]float64, 19)); !errors.HasCode(err, errors.CodeValidationError) {
		t.Errorf("Expected %s for mismatched lengths, got %v", errors.CodeValidationError, err)
	}
	if err := ValidateData(make([]float64, 3), make([]float64, 3)); !errors.HasCode(err, errors.CodeInsufficientData) {
		t.Errorf("Expected %s for short series, got %v", errors.CodeInsufficientData, err)
	}
	if err := ValidateData(make([]float64, CCM_MIN_POINTS), make([]float64, CCM_MIN_POINTS)); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
