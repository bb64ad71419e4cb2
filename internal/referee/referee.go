package referee

import (
	"strings"

	"gocausal/internal/errors"
)

// RefereeResult is the verdict of one validation gate
type RefereeResult struct {
	GateName      string             `json:"gate_name"`
	Passed        bool               `json:"passed"`
	Statistic     float64            `json:"statistic"`
	PValue        *float64           `json:"p_value,omitempty"` // nil when the gate computes no significance
	StandardUsed  string             `json:"standard_used"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Details       map[string]float64 `json:"details,omitempty"`
}

// Referee is the contract all gates must satisfy
type Referee interface {
	Execute(x, y []float64, metadata map[string]interface{}) RefereeResult
}

// RefereeCategory groups referees by the failure mode they guard against
type RefereeCategory string

const (
	CategoryDIRECTIONAL RefereeCategory = "DIRECTIONAL"
)

// GetCategoryForReferee returns the category for a referee name
func GetCategoryForReferee(name string) RefereeCategory {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "convergent_cross_mapping", "ccm", "reverse_convergent_cross_mapping", "ccm_reverse":
		return CategoryDIRECTIONAL
	default:
		return ""
	}
}

// ValidateData performs basic validation on input data
func ValidateData(x, y []float64) error {
	if len(x) != len(y) {
		return errors.ValidationError("x and y must have same length")
	}
	if len(x) < CCM_MIN_POINTS {
		return errors.Newf(errors.CodeInsufficientData, "insufficient data points (minimum %d required)", CCM_MIN_POINTS)
	}
	return nil
}

// RunReferees executes the named referees in order. Unknown names produce a
// failed result rather than aborting the run.
func RunReferees(x, y []float64, metadata map[string]interface{}, refereeNames []string) []RefereeResult {
	results := make([]RefereeResult, len(refereeNames))
	for i, name := range refereeNames {
		ref, err := GetRefereeFactory(name)
		if err != nil {
			results[i] = RefereeResult{
				GateName:      name,
				Passed:        false,
				FailureReason: "Referee not found",
			}
			continue
		}
		results[i] = ref.Execute(x, y, metadata)
	}
	return results
}
