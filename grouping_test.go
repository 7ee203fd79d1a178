package opinionmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitVector2D builds a 3D unit vector at the given angle (radians) from
// the x axis in the xy plane, so cosine similarities between test vectors
// are exactly the cosines of the angles between them.
func unitVector2D(angle float64) []float64 {
	return []float64{math.Cos(angle), math.Sin(angle), 0}
}

func TestCreateSimilarityGroupsSeedAbsorption(t *testing.T) {
	// Point 1 and point 2 are both similar to seed point 0 (0.9 and 0.75)
	// but not to each other (~0.39). Point 3 is far from everything. The
	// greedy pass puts 0, 1 and 2 together and opens a second group for 3.
	vectors := [][]float64{
		unitVector2D(0),
		unitVector2D(math.Acos(0.9)),
		unitVector2D(-math.Acos(0.75)),
		{0, 0, 1},
	}

	groups, err := CreateSimilarityGroups(vectors, 0.7)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1}, groups)
}

func TestCreateSimilarityGroupsNotTransitive(t *testing.T) {
	// The middle point bridges two outer points that are dissimilar to
	// each other. Because the middle point is the first seed, all three
	// land in one group even though the outer pair never clears the
	// threshold directly.
	middle := unitVector2D(0)
	left := unitVector2D(math.Acos(0.8))
	right := unitVector2D(-math.Acos(0.8))

	sim, err := cosineSimilarity(left, right)
	require.NoError(t, err)
	require.Less(t, sim, 0.7)

	groups, err := CreateSimilarityGroups([][]float64{middle, left, right}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, groups)
}

func TestCreateSimilarityGroupsAllDissimilar(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	groups, err := CreateSimilarityGroups(vectors, 0.7)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, groups)
}

func TestCreateSimilarityGroupsDeterministic(t *testing.T) {
	vectors := [][]float64{
		unitVector2D(0),
		unitVector2D(0.2),
		unitVector2D(1.2),
		unitVector2D(1.3),
		{0, 0, 1},
	}

	first, err := CreateSimilarityGroups(vectors, 0.7)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := CreateSimilarityGroups(vectors, 0.7)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCreateSimilarityGroupsEmptyInput(t *testing.T) {
	groups, err := CreateSimilarityGroups(nil, 0.7)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCreateSimilarityGroupsDimensionMismatch(t *testing.T) {
	_, err := CreateSimilarityGroups([][]float64{{1, 0}, {1, 0, 0}}, 0.7)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCountDistinctLabels(t *testing.T) {
	assert.Equal(t, 3, countDistinctLabels([]int{0, 0, 1, 2, 1}))
	assert.Equal(t, 0, countDistinctLabels(nil))
}
