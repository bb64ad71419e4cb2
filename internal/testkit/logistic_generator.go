package testkit

import (
	"fmt"
	"math"
	"math/rand"
)

// LogisticGeneratorConfig configures a pair of coupled logistic maps:
//
//	x[t+1] = x[t] * (RX - RX*x[t] - CouplingYToX*y[t])
//	y[t+1] = y[t] * (RY - RY*y[t] - CouplingXToY*x[t])
//
// CouplingXToY > 0 makes X a driver of Y.
type LogisticGeneratorConfig struct {
	Length       int     `json:"length"`
	RX           float64 `json:"rx"`
	RY           float64 `json:"ry"`
	CouplingXToY float64 `json:"coupling_x_to_y"`
	CouplingYToX float64 `json:"coupling_y_to_x"`
	X0           float64 `json:"x0"`
	Y0           float64 `json:"y0"`
	Transient    int     `json:"transient"` // iterations discarded before recording
	Noise        float64 `json:"noise"`     // std dev of additive observation noise
	Seed         int64   `json:"seed"`      // 0 keeps X0/Y0 as given; otherwise initial states are drawn from the seed
}

// DefaultLogisticConfig returns the classic two-species chaotic setup with X driving Y
func DefaultLogisticConfig() LogisticGeneratorConfig {
	return LogisticGeneratorConfig{
		Length:       300,
		RX:           3.8,
		RY:           3.5,
		CouplingXToY: 0.1,
		CouplingYToX: 0.02,
		X0:           0.4,
		Y0:           0.2,
		Transient:    50,
	}
}

// CoupledSeries is a generated pair of series
type CoupledSeries struct {
	X []float64
	Y []float64
}

// GenerateCoupledLogistic iterates the coupled maps and returns the recorded
// trajectories. It fails if either map leaves the unit interval.
func GenerateCoupledLogistic(cfg LogisticGeneratorConfig) (*CoupledSeries, error) {
	if cfg.Length < 1 {
		return nil, fmt.Errorf("length must be positive, got %d", cfg.Length)
	}
	if cfg.Transient < 0 {
		return nil, fmt.Errorf("transient must be non-negative, got %d", cfg.Transient)
	}

	x, y := cfg.X0, cfg.Y0
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
		x = 0.1 + 0.8*rng.Float64()
		y = 0.1 + 0.8*rng.Float64()
	}

	out := &CoupledSeries{
		X: make([]float64, 0, cfg.Length),
		Y: make([]float64, 0, cfg.Length),
	}

	for step := 0; len(out.X) < cfg.Length; step++ {
		if step >= cfg.Transient {
			out.X = append(out.X, x)
			out.Y = append(out.Y, y)
		}

		nx := x * (cfg.RX - cfg.RX*x - cfg.CouplingYToX*y)
		ny := y * (cfg.RY - cfg.RY*y - cfg.CouplingXToY*x)
		if !inUnitInterval(nx) || !inUnitInterval(ny) {
			return nil, fmt.Errorf("logistic maps diverged at step %d (x=%.4f, y=%.4f)", step, nx, ny)
		}
		x, y = nx, ny
	}

	if cfg.Noise > 0 {
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		for i := range out.X {
			out.X[i] += cfg.Noise * rng.NormFloat64()
			out.Y[i] += cfg.Noise * rng.NormFloat64()
		}
	}

	return out, nil
}

// GenerateIndependentLogistic returns two uncoupled chaotic logistic maps of length n
func GenerateIndependentLogistic(n int, seed int64) (*CoupledSeries, error) {
	cfg := DefaultLogisticConfig()
	cfg.Length = n
	cfg.RY = 3.7
	cfg.CouplingXToY = 0
	cfg.CouplingYToX = 0
	cfg.Seed = seed
	return GenerateCoupledLogistic(cfg)
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
