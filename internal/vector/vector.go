// Package vector holds the embedding arithmetic shared by the profile builder
// and the recommendation engine.
package vector

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when two embeddings of different length meet.
// It signals a broken collaborator, not missing data.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Cosine returns the cosine similarity of a and b.
// A zero-norm operand yields 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}

// WeightedSum returns sum(weights[i] * vectors[i]) component-wise.
func WeightedSum(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("got %d vectors for %d weights", len(vectors), len(weights))
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	dim := len(vectors[0])
	out := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), dim)
		}
		floats.AddScaled(out, weights[i], v)
	}
	return out, nil
}

// Normalize scales weights in place so they sum to 1.
// It returns false and leaves the slice untouched when the sum is not positive.
func Normalize(weights []float64) bool {
	total := floats.Sum(weights)
	if total <= 0 {
		return false
	}
	floats.Scale(1/total, weights)
	return true
}
