package opinionmap

// DefaultSimilarityThreshold is the recommended threshold for similarity
// grouping of opinion embeddings.
const DefaultSimilarityThreshold = 0.7

// CreateSimilarityGroups assigns a group id to every vector using a greedy,
// seed-based single pass over the similarity matrix. Iterating in input
// order, each unassigned point opens a new group and absorbs every still
// unassigned point whose similarity to it is at least threshold.
//
// This is deliberately not a transitive closure: two points that are both
// similar to the seed but not to each other still share a group. That is
// the intended approximation, cheap enough to skip a full clustering run.
// Group ids are dense from 0 in the order their seeds are encountered, and
// the result is fully determined by input order and threshold.
func CreateSimilarityGroups(vectors [][]float64, threshold float64) ([]int, error) {
	matrix, err := similarityMatrix(vectors)
	if err != nil {
		return nil, err
	}

	n := len(vectors)
	groups := make([]int, n)
	for i := range groups {
		groups[i] = -1 // -1 means unassigned
	}

	currentGroup := 0
	for i := 0; i < n; i++ {
		if groups[i] != -1 {
			continue
		}
		groups[i] = currentGroup

		// Absorb every still-unassigned point similar to this seed.
		for j := 0; j < n; j++ {
			if matrix[i][j] >= threshold && groups[j] == -1 {
				groups[j] = currentGroup
			}
		}

		currentGroup++
	}

	return groups, nil
}

// countDistinctLabels returns the number of distinct label values.
func countDistinctLabels(labels []int) int {
	seen := make(map[int]bool)
	for _, label := range labels {
		seen[label] = true
	}
	return len(seen)
}
