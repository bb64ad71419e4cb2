package ccm

import (
	"github.com/montanaflynn/stats"
)

// Pair is an observed value and its cross-mapped estimate.
type Pair struct {
	Actual    float64
	Predicted float64
}

// Correlate returns the Pearson correlation between the actual and predicted
// values. Pairs with a non-finite member are dropped first. Fewer than two
// usable pairs, zero variance, or a non-finite ratio all yield 0.
func Correlate(pairs []Pair) float64 {
	r, _ := correlate(pairs)
	return r
}

// correlate is Correlate plus a flag reporting whether the coefficient came
// from a non-degenerate computation.
func correlate(pairs []Pair) (float64, bool) {
	actual := make(stats.Float64Data, 0, len(pairs))
	predicted := make(stats.Float64Data, 0, len(pairs))
	for _, p := range pairs {
		if !isFinite(p.Actual) || !isFinite(p.Predicted) {
			continue
		}
		actual = append(actual, p.Actual)
		predicted = append(predicted, p.Predicted)
	}
	if len(actual) < 2 {
		return 0, false
	}

	sdA, err := stats.StandardDeviationPopulation(actual)
	if err != nil || sdA == 0 || !isFinite(sdA) {
		return 0, false
	}
	sdP, err := stats.StandardDeviationPopulation(predicted)
	if err != nil || sdP == 0 || !isFinite(sdP) {
		return 0, false
	}

	r, err := stats.Pearson(actual, predicted)
	if err != nil || !isFinite(r) {
		return 0, false
	}
	return r, true
}
