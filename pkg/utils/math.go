package utils

import "math"

// NormalizeL2 scales the vector in place to unit L2 norm, so dot products
// against it behave like cosine similarity. A zero vector is left unchanged.
func NormalizeL2(vec []float32) {
	var sum float32
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range vec {
		vec[i] *= inv
	}
}
