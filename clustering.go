package opinionmap

import (
	"log"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Clustering method names accepted by AssignClusters.
const (
	MethodKMeans  = "kmeans"
	MethodHDBSCAN = "hdbscan"
)

const (
	kMeansMaxIterations = 100
	kMeansRestarts      = 5
	kMeansTolerance     = 1e-4
)

// AssignClusters partitions embeddings into labelled clusters using the
// requested strategy. The density strategy discovers its own cluster count
// and may mark points as noise; if it degenerates (too much noise or too
// few clusters) the result is discarded and the centroid strategy takes
// over with a corpus-derived count. An unrecognized method name is a
// warning, not an error: it falls back to the centroid strategy at the
// requested count.
//
// Vectors are L2-normalized before either strategy runs, so embedding
// magnitude never dominates the Euclidean centroid pass.
//
// All stochastic steps (centroid initialization, restarts) draw from the
// given seed so repeated calls produce identical labels.
func AssignClusters(vectors [][]float64, method string, clusterCount int, seed int64) ([]int, error) {
	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}

	normalized := normalizeVectors(vectors)

	switch method {
	case MethodKMeans:
		return centroidLabels(normalized, clusterCount, seed), nil
	case MethodHDBSCAN:
		labels, err := densityLabels(normalized)
		if err != nil {
			return nil, err
		}
		return applyDensityFallback(normalized, labels, seed), nil
	default:
		log.Printf("⚠️  Unknown clustering method %q, falling back to kmeans", method)
		return centroidLabels(normalized, clusterCount, seed), nil
	}
}

// applyDensityFallback post-processes raw density labels (-1 = noise).
// If more than half the points are noise or fewer than two real clusters
// were found, the density result is discarded in favor of the centroid
// strategy with a count derived from the corpus size. Otherwise noise
// points are remapped to a single fresh cluster id above the existing
// maximum: noise is a cluster, not an absence.
func applyDensityFallback(vectors [][]float64, labels []int, seed int64) []int {
	n := len(labels)
	if n == 0 {
		return labels
	}

	noiseCount := 0
	maxLabel := -1
	realClusters := make(map[int]bool)
	for _, label := range labels {
		if label < 0 {
			noiseCount++
			continue
		}
		realClusters[label] = true
		if label > maxLabel {
			maxLabel = label
		}
	}

	noiseRatio := float64(noiseCount) / float64(n)
	if noiseRatio > 0.5 || len(realClusters) < 2 {
		fallbackK := clampInt(n/20, 3, 8)
		log.Printf("⚠️  Density clustering degenerated (noise=%.0f%%, clusters=%d), falling back to kmeans with k=%d",
			noiseRatio*100, len(realClusters), fallbackK)
		return centroidLabels(vectors, fallbackK, seed)
	}

	remapped := make([]int, n)
	for i, label := range labels {
		if label < 0 {
			remapped[i] = maxLabel + 1
		} else {
			remapped[i] = label
		}
	}
	return remapped
}

// centroidLabels runs seeded k-means and returns dense 0-based labels.
// Fewer than two points cannot be meaningfully partitioned, so they all
// get label 0. The effective cluster count never exceeds the point count.
func centroidLabels(vectors [][]float64, clusterCount int, seed int64) []int {
	n := len(vectors)
	if n < 2 {
		return make([]int, n)
	}

	k := clusterCount
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	rng := rand.New(rand.NewSource(seed))

	dim := len(vectors[0])
	data := mat.NewDense(n, dim, nil)
	for i, vector := range vectors {
		data.SetRow(i, vector)
	}

	bestLabels := make([]int, n)
	bestSSE := math.Inf(1)

	// Multiple restarts; keep the partition with the lowest Euclidean
	// sum of squares.
	for range kMeansRestarts {
		labels, sse := runKMeans(data, k, rng)
		if sse < bestSSE {
			bestSSE = sse
			copy(bestLabels, labels)
		}
	}

	return compactLabels(bestLabels)
}

// runKMeans performs one full k-means run: k-means++ initialization,
// Lloyd iterations to convergence or the iteration cap, and the final
// within-cluster sum of squares.
func runKMeans(data *mat.Dense, k int, rng *rand.Rand) ([]int, float64) {
	n, _ := data.Dims()

	centroids := initializeCentroids(data, k, rng)
	assignments := make([]int, n)

	for range kMeansMaxIterations {
		newAssignments := assignToCentroids(data, centroids)

		converged := true
		for i := range assignments {
			if assignments[i] != newAssignments[i] {
				converged = false
				break
			}
		}
		assignments = newAssignments

		if converged {
			break
		}

		newCentroids := recomputeCentroids(data, assignments, centroids)
		change := centroidShift(centroids, newCentroids)
		centroids = newCentroids

		if change < kMeansTolerance {
			break
		}
	}

	return assignments, sumOfSquares(data, centroids, assignments)
}

// initializeCentroids picks k starting centroids with k-means++ weighting:
// the first at random, the rest proportionally to squared distance from
// the nearest centroid chosen so far.
func initializeCentroids(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	firstIdx := rng.Intn(n)
	centroids.SetRow(0, data.RawRowView(firstIdx))

	for i := 1; i < k; i++ {
		distances := make([]float64, n)
		totalWeight := 0.0

		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				dist := squaredDistance(point, centroids.RawRowView(c))
				if dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist
			totalWeight += minDist
		}

		if totalWeight == 0 {
			// All points identical to chosen centroids.
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		cumWeight := 0.0
		for j, dist := range distances {
			cumWeight += dist
			if cumWeight >= target {
				centroids.SetRow(i, data.RawRowView(j))
				break
			}
		}
	}

	return centroids
}

// assignToCentroids assigns each point to its nearest centroid by
// Euclidean distance.
func assignToCentroids(data, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		minDist := math.Inf(1)
		best := 0

		for j := 0; j < k; j++ {
			dist := squaredDistance(point, centroids.RawRowView(j))
			if dist < minDist {
				minDist = dist
				best = j
			}
		}

		assignments[i] = best
	}

	return assignments
}

// recomputeCentroids recalculates each centroid as the mean of its
// assigned points. A centroid that lost all its points keeps its previous
// position.
func recomputeCentroids(data *mat.Dense, assignments []int, previous *mat.Dense) *mat.Dense {
	n, d := data.Dims()
	k, _ := previous.Dims()

	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i := 0; i < n; i++ {
		clusterID := assignments[i]
		point := data.RawRowView(i)
		for j := 0; j < d; j++ {
			centroids.Set(clusterID, j, centroids.At(clusterID, j)+point[j])
		}
		counts[clusterID]++
	}

	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			centroids.SetRow(i, previous.RawRowView(i))
			continue
		}
		for j := 0; j < d; j++ {
			centroids.Set(i, j, centroids.At(i, j)/float64(counts[i]))
		}
	}

	return centroids
}

// centroidShift measures the average Euclidean movement of centroids
// between iterations.
func centroidShift(oldCentroids, newCentroids *mat.Dense) float64 {
	k, _ := oldCentroids.Dims()
	total := 0.0
	for i := 0; i < k; i++ {
		total += math.Sqrt(squaredDistance(oldCentroids.RawRowView(i), newCentroids.RawRowView(i)))
	}
	return total / float64(k)
}

// sumOfSquares computes the within-cluster Euclidean sum of squares used
// to pick the best restart.
func sumOfSquares(data, centroids *mat.Dense, assignments []int) float64 {
	n, _ := data.Dims()
	sse := 0.0
	for i := 0; i < n; i++ {
		sse += squaredDistance(data.RawRowView(i), centroids.RawRowView(assignments[i]))
	}
	return sse
}

func squaredDistance(a, b []float64) float64 {
	dist := 0.0
	for i := range a {
		diff := a[i] - b[i]
		dist += diff * diff
	}
	return dist
}

// compactLabels renumbers labels densely from 0 in first-appearance order
// so callers never see gaps left by emptied clusters.
func compactLabels(labels []int) []int {
	mapping := make(map[int]int)
	compacted := make([]int, len(labels))
	next := 0
	for i, label := range labels {
		mapped, ok := mapping[label]
		if !ok {
			mapped = next
			mapping[label] = mapped
			next++
		}
		compacted[i] = mapped
	}
	return compacted
}

// checkDimensions verifies all vectors share one dimensionality.
func checkDimensions(vectors [][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for _, vector := range vectors[1:] {
		if len(vector) != dim {
			return ErrDimensionMismatch
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
