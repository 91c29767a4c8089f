package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	vec := []float32{3, 4}
	NormalizeL2(vec)
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm = %f, want 1", norm)
	}
	if vec[0] <= 0 || vec[1] <= 0 {
		t.Errorf("direction changed: %v", vec)
	}
}

func TestNormalizeL2_ZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	NormalizeL2(vec)
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}
