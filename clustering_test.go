package opinionmap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeBlobs generates points scattered around the given centers, counts[i]
// points per center, with a fixed spread.
func makeBlobs(centers [][]float64, counts []int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var vectors [][]float64
	for c, center := range centers {
		for i := 0; i < counts[c]; i++ {
			point := make([]float64, len(center))
			for j, v := range center {
				point[j] = v + rng.NormFloat64()*0.05
			}
			vectors = append(vectors, point)
		}
	}
	return vectors
}

func TestCentroidLabelsSeparatesBlobs(t *testing.T) {
	vectors := makeBlobs([][]float64{{0, 0}, {10, 10}}, []int{5, 5}, 1)

	labels := centroidLabels(vectors, 2, 42)
	require.Len(t, labels, 10)

	// All points of one blob share a label, and the blobs differ.
	for i := 1; i < 5; i++ {
		assert.Equal(t, labels[0], labels[i])
	}
	for i := 6; i < 10; i++ {
		assert.Equal(t, labels[5], labels[i])
	}
	assert.NotEqual(t, labels[0], labels[5])
}

func TestCentroidLabelsClampsToPointCount(t *testing.T) {
	vectors := [][]float64{{0, 0}, {1, 1}, {2, 2}}

	labels := centroidLabels(vectors, 5, 7)
	require.Len(t, labels, 3)

	for _, label := range labels {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 3)
	}
}

func TestCentroidLabelsFewerThanTwoPoints(t *testing.T) {
	assert.Equal(t, []int{0}, centroidLabels([][]float64{{1, 2, 3}}, 4, 0))
	assert.Empty(t, centroidLabels(nil, 4, 0))
}

func TestCentroidLabelsDeterministicForSeed(t *testing.T) {
	vectors := makeBlobs([][]float64{{0, 0}, {5, 5}, {-5, 5}}, []int{4, 4, 4}, 2)

	first := centroidLabels(vectors, 3, 99)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, centroidLabels(vectors, 3, 99))
	}
}

func TestCentroidLabelsAreDense(t *testing.T) {
	vectors := makeBlobs([][]float64{{0, 0}, {10, 0}}, []int{6, 6}, 3)

	labels := centroidLabels(vectors, 2, 1)
	seen := make(map[int]bool)
	for _, label := range labels {
		seen[label] = true
	}
	for label := range seen {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, len(seen))
	}
}

func TestAssignClustersUnknownMethodFallsBack(t *testing.T) {
	vectors := makeBlobs([][]float64{{10, 0}, {0, 10}}, []int{4, 4}, 4)

	labels, err := AssignClusters(vectors, "spectral", 2, 11)
	require.NoError(t, err)
	require.Len(t, labels, 8)

	fallback := centroidLabels(normalizeVectors(vectors), 2, 11)
	assert.Equal(t, fallback, labels)
}

func TestAssignClustersIgnoresMagnitude(t *testing.T) {
	// Two directions at wildly different magnitudes: normalization puts
	// scaled copies of a direction into the same cluster.
	vectors := [][]float64{
		{1, 0},
		{100, 0},
		{0, 1},
		{0, 50},
	}

	labels, err := AssignClusters(vectors, MethodKMeans, 2, 3)
	require.NoError(t, err)
	require.Len(t, labels, 4)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
}

func TestAssignClustersDimensionMismatch(t *testing.T) {
	_, err := AssignClusters([][]float64{{1, 0}, {1, 0, 0}}, MethodKMeans, 2, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestApplyDensityFallbackRemapsNoise(t *testing.T) {
	vectors := make([][]float64, 8)
	for i := range vectors {
		vectors[i] = []float64{float64(i), 0}
	}
	labels := []int{0, 0, 0, 1, 1, 1, -1, -1}

	// 25% noise with two real clusters keeps the density result; noise
	// becomes its own cluster above the existing maximum.
	result := applyDensityFallback(vectors, labels, 0)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 2, 2}, result)
}

func TestApplyDensityFallbackDiscardsHighNoise(t *testing.T) {
	vectors := makeBlobs([][]float64{{0, 0}, {10, 10}}, []int{5, 5}, 5)
	labels := []int{0, 0, 1, 1, -1, -1, -1, -1, -1, -1} // 60% noise

	result := applyDensityFallback(vectors, labels, 17)
	require.Len(t, result, 10)

	for _, label := range result {
		assert.GreaterOrEqual(t, label, 0)
	}
	// The fallback reruns k-means with a corpus-derived count, here
	// clamped up to 3.
	assert.Equal(t, centroidLabels(vectors, 3, 17), result)
}

func TestApplyDensityFallbackDiscardsSingleCluster(t *testing.T) {
	vectors := makeBlobs([][]float64{{0, 0}, {10, 10}}, []int{5, 5}, 6)
	labels := make([]int, 10) // one giant cluster, no noise

	result := applyDensityFallback(vectors, labels, 23)
	assert.Equal(t, centroidLabels(vectors, 3, 23), result)
}

func TestApplyDensityFallbackPassThrough(t *testing.T) {
	vectors := make([][]float64, 6)
	for i := range vectors {
		vectors[i] = []float64{float64(i), 1}
	}
	labels := []int{0, 1, 0, 1, 2, 2}

	result := applyDensityFallback(vectors, labels, 0)
	assert.Equal(t, labels, result)
}

func TestCompactLabelsRenumbersDensely(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0, 2, 1}, compactLabels([]int{4, 2, 4, 0, 2}))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 3, clampInt(1, 3, 8))
	assert.Equal(t, 8, clampInt(12, 3, 8))
	assert.Equal(t, 5, clampInt(5, 3, 8))
}
