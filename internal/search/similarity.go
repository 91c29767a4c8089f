// Package search provides late-interaction retrieval: candidate generation
// over per-vector nearest-neighbor search, followed by exact MaxSim reranking.
package search

// DotProduct returns the dot product of two vectors. This is the single
// similarity metric used by both search stages; vectors are compared as
// given, with no implicit normalization.
func DotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// maxSim returns the maximum dot product of query against any vector in bag.
func maxSim(query []float32, bag [][]float32) float64 {
	best := 0.0
	for i, v := range bag {
		sim := DotProduct(query, v)
		if i == 0 || sim > best {
			best = sim
		}
	}
	return best
}
