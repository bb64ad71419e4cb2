package referee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocausal/internal/ccm"
	"gocausal/internal/testkit"
)

func fastCCM(dir ccm.Direction) *ConvergentCrossMapping {
	return &ConvergentCrossMapping{
		Direction: dir,
		Options: ccm.Options{
			EmbeddingDim: 2,
			LibSizes:     []int{5, 10, 15, 20, 30, 40, 60, 80, 120, 160},
			NumSamples:   20,
		},
	}
}

func drivenPair(t *testing.T) *testkit.CoupledSeries {
	t.Helper()
	cfg := testkit.DefaultLogisticConfig()
	cfg.CouplingXToY = 0.3
	cfg.CouplingYToX = 0
	series, err := testkit.GenerateCoupledLogistic(cfg)
	require.NoError(t, err)
	return series
}

func TestConvergentCrossMapping_DetectsDriver(t *testing.T) {
	series := drivenPair(t)

	result := fastCCM(ccm.XCausesY).Execute(series.X, series.Y, map[string]interface{}{"seed": 42})

	assert.Equal(t, "Convergent_Cross_Mapping", result.GateName)
	assert.True(t, result.Passed, "failure: %s", result.FailureReason)
	assert.GreaterOrEqual(t, result.Statistic, CCM_CONVERGENCE_RHO)
	assert.Greater(t, result.Details["slope"], ccm.ConvergenceSlopeThreshold)
	assert.Nil(t, result.PValue)
	assert.True(t, ValidateStandardUsed(result.StandardUsed, result.GateName))
}

func TestConvergentCrossMapping_RejectsIndependentSeries(t *testing.T) {
	series, err := testkit.GenerateIndependentLogistic(300, 4)
	require.NoError(t, err)

	for _, dir := range []ccm.Direction{ccm.XCausesY, ccm.YCausesX} {
		result := fastCCM(dir).Execute(series.X, series.Y, map[string]interface{}{"seed": int64(4)})
		assert.False(t, result.Passed, "%s should not pass on independent maps", dir)
		assert.NotEmpty(t, result.FailureReason)
		assert.Less(t, result.Statistic, CCM_CONVERGENCE_RHO)
	}
}

func TestConvergentCrossMapping_ReverseGateName(t *testing.T) {
	series, err := testkit.GenerateIndependentLogistic(60, 1)
	require.NoError(t, err)

	ref := &ConvergentCrossMapping{Direction: ccm.YCausesX, Options: ccm.Options{NumSamples: 2}}
	result := ref.Execute(series.X, series.Y, nil)
	assert.Equal(t, "Reverse_Convergent_Cross_Mapping", result.GateName)
}

func TestConvergentCrossMapping_InvalidData(t *testing.T) {
	ref := fastCCM(ccm.XCausesY)

	result := ref.Execute([]float64{1, 2, 3}, []float64{1, 2, 3}, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.FailureReason, "insufficient data points")

	x := make([]float64, 20)
	result = ref.Execute(x, x[:15], nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.FailureReason, "same length")

	bad := &ConvergentCrossMapping{Options: ccm.Options{Tau: -1}}
	result = bad.Execute(x, x, nil)
	assert.False(t, result.Passed)
	assert.Contains(t, result.FailureReason, "tau")
}

func TestConvergentCrossMapping_SeedReproducible(t *testing.T) {
	series := drivenPair(t)

	meta := map[string]interface{}{"seed": 1234.0}
	a := fastCCM(ccm.XCausesY).Execute(series.X, series.Y, meta)
	b := fastCCM(ccm.XCausesY).Execute(series.X, series.Y, meta)
	assert.Equal(t, a, b)
}

func TestRunReferees(t *testing.T) {
	x := make([]float64, 30)
	y := make([]float64, 30)
	for i := range x {
		x[i] = float64(i%7) / 7
		y[i] = float64(i%5) / 5
	}

	results := RunReferees(x, y, map[string]interface{}{"seed": 3}, []string{"unknown_gate"})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "Referee not found", results[0].FailureReason)
}
