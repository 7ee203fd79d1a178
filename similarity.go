package opinionmap

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors disagree in length.
// It is fatal to the single computation, not to the whole request.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrEmptyInput is returned when an operation is given no points or an
// empty statement to work with.
var ErrEmptyInput = errors.New("empty input")

// cosineSimilarity calculates cosine similarity between two vectors.
// A zero vector yields similarity 0 rather than a division by zero.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	dotProduct := 0.0
	normA := 0.0
	normB := 0.0

	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// similarityMatrix computes the full pairwise cosine similarity matrix.
// O(N²) but N is bounded by the opinion corpus size (low hundreds).
func similarityMatrix(vectors [][]float64) ([][]float64, error) {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim, err := cosineSimilarity(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}

	return matrix, nil
}

// normalizeVectors applies L2 normalization to all vectors for better
// clustering behavior in cosine space.
func normalizeVectors(vectors [][]float64) [][]float64 {
	normalized := make([][]float64, len(vectors))

	for i, vector := range vectors {
		norm := 0.0
		for _, val := range vector {
			norm += val * val
		}
		norm = math.Sqrt(norm)

		normalizedVec := make([]float64, len(vector))
		if norm > 0 {
			for j, val := range vector {
				normalizedVec[j] = val / norm
			}
		} else {
			copy(normalizedVec, vector)
		}

		normalized[i] = normalizedVec
	}

	return normalized
}
