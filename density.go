package opinionmap

import (
	"log"
	"math"
	"sort"
)

// noiseLabel marks points the density pass could not assign to any cluster.
const noiseLabel = -1

// densityLabels runs density-based clustering over cosine distance and
// returns one label per vector, with noiseLabel for unassigned points.
// The minimum cluster size scales with the corpus: one cluster per ~15
// opinions, bounded to [5, 25]. No cluster count is requested up front;
// the data decides, and a uniform corpus may collapse into one cluster.
func densityLabels(vectors [][]float64) ([]int, error) {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	if n == 0 {
		return labels, nil
	}

	matrix, err := similarityMatrix(vectors)
	if err != nil {
		return nil, err
	}

	minPts := clampInt(n/15, 5, 25)
	eps := optimalEps(matrix, minPts)
	log.Printf("Density clustering %d points (minPts=%d, eps=%.4f)", n, minPts, eps)

	visited := make([]bool, n)
	currentCluster := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := epsNeighbors(matrix, i, eps)
		if len(neighbors) < minPts {
			continue // stays noise unless absorbed by a later cluster
		}

		expandDensityCluster(matrix, i, neighbors, currentCluster, eps, minPts, visited, labels)
		currentCluster++
	}

	return labels, nil
}

// optimalEps derives the DBSCAN radius from the k-distance curve: the
// cosine distance to each point's k-th nearest neighbor, read at a
// percentile that shrinks as the corpus grows. Small corpora need a wider
// radius to avoid over-fragmentation.
func optimalEps(matrix [][]float64, k int) float64 {
	n := len(matrix)
	kDistances := make([]float64, n)

	for i := 0; i < n; i++ {
		distances := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if i != j {
				distances = append(distances, 1.0-matrix[i][j])
			}
		}
		sort.Float64s(distances)
		if len(distances) == 0 {
			continue
		}
		idx := k - 1
		if idx >= len(distances) {
			idx = len(distances) - 1
		}
		kDistances[i] = distances[idx]
	}

	sort.Float64s(kDistances)

	var percentile float64
	switch {
	case n < 20:
		percentile = 0.3
	case n < 50:
		percentile = 0.25
	default:
		percentile = 0.15
	}

	elbowIdx := int(float64(n) * percentile)
	if elbowIdx >= n {
		elbowIdx = n - 1
	}
	if elbowIdx < 1 {
		elbowIdx = 1
	}
	if elbowIdx >= len(kDistances) {
		elbowIdx = len(kDistances) - 1
	}

	eps := kDistances[elbowIdx]

	// Bound eps to mean ± stddev of the k-distance curve so a single
	// outlier cannot blow the radius up or collapse it.
	mean := 0.0
	for _, d := range kDistances {
		mean += d
	}
	mean /= float64(len(kDistances))

	stdDev := 0.0
	for _, d := range kDistances {
		diff := d - mean
		stdDev += diff * diff
	}
	stdDev = math.Sqrt(stdDev / float64(len(kDistances)))

	minEps := math.Max(0.03, mean-2*stdDev)
	maxEps := math.Min(0.35, mean+stdDev)

	if eps < minEps {
		eps = minEps
	} else if eps > maxEps {
		eps = maxEps
	}

	return eps
}

// epsNeighbors returns the indices within cosine distance eps of point i.
func epsNeighbors(matrix [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range matrix {
		if j != i && 1.0-matrix[i][j] <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// expandDensityCluster grows a cluster from a core point, absorbing
// density-reachable neighbors.
func expandDensityCluster(matrix [][]float64, pointIdx int, neighbors []int, clusterID int, eps float64, minPts int, visited []bool, labels []int) {
	labels[pointIdx] = clusterID

	for i := 0; i < len(neighbors); i++ {
		nIdx := neighbors[i]

		if !visited[nIdx] {
			visited[nIdx] = true
			newNeighbors := epsNeighbors(matrix, nIdx, eps)
			if len(newNeighbors) >= minPts {
				for _, newN := range newNeighbors {
					alreadyIn := false
					for _, existing := range neighbors {
						if existing == newN {
							alreadyIn = true
							break
						}
					}
					if !alreadyIn {
						neighbors = append(neighbors, newN)
					}
				}
			}
		}

		if labels[nIdx] == noiseLabel {
			labels[nIdx] = clusterID
		}
	}
}
