package ccm

import (
	"math/rand"
)

// SampleCrossMap runs one bootstrap trial: it draws libSize embedded points
// without replacement as the library, cross-maps every remaining point onto
// target, and returns the correlation between the true and estimated values.
//
// target is the raw series being recovered; its first (E-1)*tau values are
// dropped so that target index i lines up with embedding point i.
// A trial that cannot hold out at least two points scores 0.
func SampleCrossMap(rng *rand.Rand, embedding []Point, target []float64, libSize, e, tau int) float64 {
	score, _ := sampleCrossMap(rng, embedding, target, libSize, e, tau)
	return score
}

// sampleCrossMap also reports whether the trial produced a non-degenerate score.
func sampleCrossMap(rng *rand.Rand, embedding []Point, target []float64, libSize, e, tau int) (float64, bool) {
	total := len(embedding)
	if libSize < 1 || libSize >= total {
		return 0, false
	}

	actualLib := libSize
	if actualLib > total-1 {
		actualLib = total - 1
	}

	offset := (e - 1) * tau
	if offset < 0 || offset > len(target) {
		return 0, false
	}
	adjusted := target[offset:]
	if len(adjusted) < total || total-actualLib < 2 {
		return 0, false
	}

	perm := rng.Perm(total)
	inLibrary := make([]bool, total)
	libPoints := make([]Point, actualLib)
	libTargets := make([]float64, actualLib)
	for i, idx := range perm[:actualLib] {
		inLibrary[idx] = true
		libPoints[i] = embedding[idx]
		libTargets[i] = adjusted[idx]
	}

	pairs := make([]Pair, 0, total-actualLib)
	for idx := 0; idx < total; idx++ {
		if inLibrary[idx] {
			continue
		}
		pairs = append(pairs, Pair{
			Actual:    adjusted[idx],
			Predicted: Predict(embedding[idx], libPoints, libTargets),
		})
	}

	return correlate(pairs)
}
