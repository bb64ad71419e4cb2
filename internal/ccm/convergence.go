package ccm

import (
	"gonum.org/v1/gonum/stat"
)

// ConvergenceSlopeThreshold is the minimum slope of correlation against
// library size for a direction to count as convergent.
const ConvergenceSlopeThreshold = 0.001

// minTrendPoints is the fewest valid library sizes a trend is fitted on.
const minTrendPoints = 3

// TrendSlope fits correlation = slope*libSize + intercept by ordinary least
// squares over the entries with a finite correlation. ok is false when fewer
// than three entries remain or every library size is identical.
func TrendSlope(results []LibraryResult) (slope float64, ok bool) {
	xs := make([]float64, 0, len(results))
	ys := make([]float64, 0, len(results))
	for _, r := range results {
		if !isFinite(r.MeanCorrelation) {
			continue
		}
		xs = append(xs, float64(r.LibSize))
		ys = append(ys, r.MeanCorrelation)
	}
	if len(xs) < minTrendPoints {
		return 0, false
	}

	// n*Σx² - (Σx)² vanishes exactly when all library sizes coincide.
	if stat.Variance(xs, nil) == 0 {
		return 0, false
	}

	_, slope = stat.LinearRegression(xs, ys, nil, false)
	if !isFinite(slope) {
		return 0, false
	}
	return slope, true
}

// IsConvergent reports whether cross-map skill rises with library size by
// more than ConvergenceSlopeThreshold per library point.
func IsConvergent(results []LibraryResult) bool {
	slope, ok := TrendSlope(results)
	return ok && slope > ConvergenceSlopeThreshold
}
