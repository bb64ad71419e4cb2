package ccm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// weightEpsilon keeps the exponential weight finite when the nearest
	// neighbor sits on top of the query point.
	weightEpsilon = 1e-8

	// duplicateDistance is the distance under which a neighbor is treated as
	// the query point itself and receives full weight.
	duplicateDistance = 1e-12
)

type neighbor struct {
	index    int
	distance float64
}

// Predict estimates the target value at query from its E+1 nearest neighbors
// in library, weighting neighbor i by exp(-d_i / (d_min + 1e-8)). Degenerate
// input (empty library, empty query, no targets, zero total weight or a
// non-finite estimate) yields 0.
func Predict(query Point, library []Point, targets []float64) float64 {
	n := len(library)
	if len(targets) < n {
		n = len(targets)
	}
	if n == 0 || query.dim == 0 {
		return 0
	}

	candidates := make([]neighbor, 0, n)
	q := query.coords[:query.dim]
	for i := 0; i < n; i++ {
		if library[i].dim != query.dim {
			continue
		}
		candidates = append(candidates, neighbor{
			index:    i,
			distance: floats.Distance(q, library[i].coords[:library[i].dim], 2),
		})
	}
	if len(candidates) == 0 {
		return 0
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].distance != candidates[b].distance {
			return candidates[a].distance < candidates[b].distance
		}
		return candidates[a].index < candidates[b].index
	})

	k := query.dim + 1
	if k > len(candidates) {
		k = len(candidates)
	}
	nearest := candidates[:k]
	minDist := nearest[0].distance

	var weighted, total float64
	for _, nb := range nearest {
		w := math.Exp(-nb.distance / (minDist + weightEpsilon))
		if nb.distance < duplicateDistance {
			w = 1
		}
		weighted += w * targets[nb.index]
		total += w
	}

	if total == 0 {
		return 0
	}
	estimate := weighted / total
	if !isFinite(estimate) {
		return 0
	}
	return estimate
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
