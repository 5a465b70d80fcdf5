package rag

import "math"

// CosineSimilarity returns the raw cosine of a and b, or 0 when the vectors
// differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Similarity is the cosine clamped to [0,1]. It matches the score the
// postgres store computes as GREATEST(0, 1 - cosine_distance).
func Similarity(a, b []float32) float64 {
	s := CosineSimilarity(a, b)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
