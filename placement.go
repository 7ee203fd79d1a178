package opinionmap

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	// stanceNeighborhoodThreshold selects which existing points pull the
	// user's stance toward them.
	stanceNeighborhoodThreshold = 0.5

	// stanceJitterStdDev is the spread of the cosmetic jitter applied to
	// the placed coordinates so the stance never lands exactly on an
	// existing point.
	stanceJitterStdDev = 0.05
)

// PlaceStance positions a user statement among an existing labelled point
// set without re-running dimensionality reduction. The statement is
// embedded, compared against every stored point embedding (points that
// did not carry their embedding through are re-embedded from their text),
// and placed at the similarity-weighted average of its neighborhood —
// all points with similarity above 0.5. An empty neighborhood degrades to
// the most similar point's exact coordinates. The stance inherits the
// cluster label of its most similar point; the weighted average only
// moves coordinates, never the label.
//
// The input slice is not mutated: a fresh point set is returned with
// every point's SimilarityToUser rewritten and the new stance appended
// with SimilarityToUser fixed at 1.0. Jitter comes from rng so tests can
// pin it down; a nil rng gets a time-seeded source.
func PlaceStance(ctx context.Context, topic string, points []LabelledPoint, statement string, embedder Embedder, rng *rand.Rand) (StanceResult, error) {
	statement = strings.TrimSpace(statement)
	if len(points) == 0 {
		return StanceResult{}, fmt.Errorf("%w: no existing points to place stance among", ErrEmptyInput)
	}
	if statement == "" {
		return StanceResult{}, fmt.Errorf("%w: statement is empty", ErrEmptyInput)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	userEmbedding, err := embedder.Embed(ctx, statement)
	if err != nil {
		return StanceResult{}, fmt.Errorf("failed to embed statement: %w", err)
	}

	similarities := make([]float64, len(points))
	for i, point := range points {
		embedding := point.Embedding
		if embedding == nil {
			// Embedding was not carried through; recompute from text.
			embedding, err = embedder.Embed(ctx, point.Text)
			if err != nil {
				return StanceResult{}, fmt.Errorf("failed to re-embed point %d: %w", point.ID, err)
			}
		}
		sim, err := cosineSimilarity(userEmbedding, embedding)
		if err != nil {
			return StanceResult{}, err
		}
		similarities[i] = sim
	}

	maxIdx := 0
	maxSimilarity := similarities[0]
	for i, sim := range similarities[1:] {
		if sim > maxSimilarity {
			maxSimilarity = sim
			maxIdx = i + 1
		}
	}

	x, y, neighborhoodSize := stanceCoordinates(points, similarities, maxIdx)

	result := make([]LabelledPoint, len(points), len(points)+1)
	copy(result, points)
	for i := range result {
		sim := similarities[i]
		result[i].SimilarityToUser = &sim
	}

	selfSimilarity := 1.0
	stance := LabelledPoint{
		ID:               len(points),
		X:                x + rng.NormFloat64()*stanceJitterStdDev,
		Y:                y + rng.NormFloat64()*stanceJitterStdDev,
		Text:             statement,
		Label:            points[maxIdx].Label,
		Origin:           "user",
		Embedding:        userEmbedding,
		IsUserStance:     true,
		SimilarityToUser: &selfSimilarity,
	}
	result = append(result, stance)

	return StanceResult{
		Points:           result,
		MaxSimilarity:    maxSimilarity,
		NeighborhoodSize: neighborhoodSize,
		Topic:            topic,
	}, nil
}

// stanceCoordinates computes the pre-jitter position of the stance: the
// similarity-weighted average over all points above the neighborhood
// threshold, or the most similar point's exact coordinates when nothing
// clears the bar.
func stanceCoordinates(points []LabelledPoint, similarities []float64, maxIdx int) (float64, float64, int) {
	x, y := 0.0, 0.0
	weight := 0.0
	neighborhoodSize := 0
	for i, sim := range similarities {
		if sim > stanceNeighborhoodThreshold {
			x += points[i].X * sim
			y += points[i].Y * sim
			weight += sim
			neighborhoodSize++
		}
	}
	if neighborhoodSize > 0 {
		return x / weight, y / weight, neighborhoodSize
	}
	return points[maxIdx].X, points[maxIdx].Y, 0
}
