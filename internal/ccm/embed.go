package ccm

// MaxEmbeddingDim bounds the size of a reconstructed state vector.
const MaxEmbeddingDim = 16

// Point is one E-dimensional state-space point. Coordinates live in a fixed
// array so embeddings do not allocate per point.
type Point struct {
	coords [MaxEmbeddingDim]float64
	dim    int
}

// NewPoint builds a Point from coordinates. Values beyond MaxEmbeddingDim are dropped.
func NewPoint(coords ...float64) Point {
	var p Point
	p.dim = copy(p.coords[:], coords)
	return p
}

// Dim returns the number of coordinates.
func (p Point) Dim() int { return p.dim }

// At returns the i-th coordinate.
func (p Point) At(i int) float64 { return p.coords[i] }

// Coords returns a copy of the coordinates.
func (p Point) Coords() []float64 {
	out := make([]float64, p.dim)
	copy(out, p.coords[:p.dim])
	return out
}

// Embed reconstructs the shadow manifold of series with E delay coordinates
// spaced tau apart. Point i is (s[i], s[i+tau], ..., s[i+(E-1)tau]).
// A series too short for a single point yields an empty embedding, as does
// e outside [1, MaxEmbeddingDim] or tau < 1. New rejects those parameters
// before any embedding is built.
func Embed(series []float64, e, tau int) []Point {
	if e < 1 || e > MaxEmbeddingDim || tau < 1 {
		return nil
	}

	n := EmbeddedLength(len(series), e, tau)
	if n <= 0 {
		return nil
	}

	points := make([]Point, n)
	for i := range points {
		points[i].dim = e
		for j := 0; j < e; j++ {
			points[i].coords[j] = series[i+j*tau]
		}
	}
	return points
}

// EmbeddedLength returns len(series) - (E-1)*tau, the number of points Embed
// produces when positive.
func EmbeddedLength(seriesLen, e, tau int) int {
	return seriesLen - (e-1)*tau
}
