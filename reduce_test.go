package opinionmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordDistance(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

func TestProjectPCADistancesAlongLine(t *testing.T) {
	// Collinear points: PCA puts them on one axis with their spacing
	// intact, whatever sign the singular vectors come out with.
	vectors := [][]float64{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 2},
	}

	coords, err := projectPCA(vectors)
	require.NoError(t, err)

	lineLength := math.Sqrt(12) // distance between first and last input
	assert.InDelta(t, lineLength, coordDistance(coords[0], coords[2]), 1e-9)
	assert.InDelta(t, lineLength/2, coordDistance(coords[0], coords[1]), 1e-9)
	assert.InDelta(t, lineLength/2, coordDistance(coords[1], coords[2]), 1e-9)
}

func TestProjectPCAEmptyInput(t *testing.T) {
	_, err := projectPCA(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestProjectPCADimensionMismatch(t *testing.T) {
	_, err := projectPCA([][]float64{{1, 0, 0}, {1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestProjectPCAOneDimensionalInput(t *testing.T) {
	coords, err := projectPCA([][]float64{{3}, {5}, {7}})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{3, 0}, coords[0])
	assert.Equal(t, [2]float64{5, 0}, coords[1])
	assert.Equal(t, [2]float64{7, 0}, coords[2])
}

func TestProjectPCASinglePoint(t *testing.T) {
	coords, err := projectPCA([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{1, 2}, coords[0])
}

func TestPCAReducerSubstitutesUnavailableAlgorithms(t *testing.T) {
	vectors := [][]float64{
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
		{1, 1, 1},
	}

	reducer := PCAReducer{}
	base, err := reducer.Reduce(vectors, ReductionPCA)
	require.NoError(t, err)

	for _, algorithm := range []string{ReductionUMAP, ReductionTSNE, "spectral"} {
		coords, err := reducer.Reduce(vectors, algorithm)
		require.NoError(t, err)
		assert.Equal(t, base, coords)
	}
}
