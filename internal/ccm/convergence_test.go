package ccm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func curve(points ...[2]float64) []LibraryResult {
	out := make([]LibraryResult, len(points))
	for i, p := range points {
		out[i] = LibraryResult{LibSize: int(p[0]), MeanCorrelation: p[1]}
	}
	return out
}

func TestIsConvergent(t *testing.T) {
	tests := []struct {
		name    string
		results []LibraryResult
		want    bool
	}{
		{"rising", curve([2]float64{10, 0.1}, [2]float64{50, 0.5}, [2]float64{100, 0.9}), true},
		{"flat", curve([2]float64{10, 0.5}, [2]float64{50, 0.5}, [2]float64{100, 0.5}), false},
		{"falling", curve([2]float64{10, 0.9}, [2]float64{50, 0.5}, [2]float64{100, 0.1}), false},
		{"too few points", curve([2]float64{10, 0.1}, [2]float64{100, 0.9}), false},
		{"identical lib sizes", curve([2]float64{50, 0.1}, [2]float64{50, 0.5}, [2]float64{50, 0.9}), false},
		{"slope below threshold", curve([2]float64{10, 0.50}, [2]float64{100, 0.55}, [2]float64{200, 0.60}), false},
		{"non-finite filtered below three", curve([2]float64{10, 0.1}, [2]float64{50, math.NaN()}, [2]float64{100, 0.9}), false},
		{
			"non-finite filtered",
			curve([2]float64{10, 0.1}, [2]float64{30, math.Inf(1)}, [2]float64{50, 0.5}, [2]float64{100, 0.9}),
			true,
		},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConvergent(tt.results))
		})
	}
}

func TestTrendSlope_MatchesClosedForm(t *testing.T) {
	results := curve([2]float64{10, 0.2}, [2]float64{20, 0.35}, [2]float64{40, 0.5}, [2]float64{80, 0.62})

	var n, sx, sy, sxy, sxx float64
	for _, r := range results {
		x, y := float64(r.LibSize), r.MeanCorrelation
		n++
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	want := (n*sxy - sx*sy) / (n*sxx - sx*sx)

	got, ok := TrendSlope(results)
	assert.True(t, ok)
	assert.InDelta(t, want, got, 1e-12)
}
