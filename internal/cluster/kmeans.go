// Package cluster implements the unsupervised machinery behind adaptive
// color splitting: a seeded k-means, a silhouette separation score, and the
// union-find perceptual centroid merger.
//
// The k-means here is deliberately hand-rolled rather than delegated to a
// library: the engine guarantees that identical inputs and seed produce
// byte-identical masks, which requires full control over the random source.
package cluster

import (
	"math"
	"math/rand"

	"github.com/garmentlab/huesplit/internal/color"
)

const (
	maxIterations = 40
	convergeShift = 0.25
)

// Model is a fitted k-means model: a fixed set of scaled-LAB centroids.
type Model struct {
	Centroids []color.LAB
}

// KMeans fits k centroids to the points with k-means++ seeding and Lloyd
// iterations. The rng drives both seeding and empty-cluster recovery, so a
// given rng state yields a deterministic model. Points must be non-empty
// and k >= 1; k is capped at len(points).
func KMeans(points []color.LAB, k int, rng *rand.Rand) *Model {
	n := len(points)
	if n == 0 || k < 1 {
		return &Model{}
	}
	if k > n {
		k = n
	}
	if k == 1 {
		return &Model{Centroids: []color.LAB{color.MeanLAB(points)}}
	}

	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		// Assignment step. Ties break to the lowest centroid index via the
		// strict comparison.
		for i, p := range points {
			labels[i] = nearest(centroids, p)
		}

		// Update step.
		sums := make([]color.LAB, k)
		counts := make([]int, k)
		for i, p := range points {
			l := labels[i]
			sums[l].L += p.L
			sums[l].A += p.A
			sums[l].B += p.B
			counts[l]++
		}

		maxShift := 0.0
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed an empty cluster on the point farthest from its
				// current centroid; deterministic scan, no rng draw needed.
				centroids[c] = farthestPoint(points, centroids, labels)
				maxShift = math.Inf(1)
				continue
			}
			f := float64(counts[c])
			next := color.LAB{L: sums[c].L / f, A: sums[c].A / f, B: sums[c].B / f}
			if shift := color.DeltaE(centroids[c], next); shift > maxShift {
				maxShift = shift
			}
			centroids[c] = next
		}
		if maxShift < convergeShift {
			break
		}
	}

	return &Model{Centroids: centroids}
}

// Assign returns the index of the nearest centroid, ties to the lowest
// index.
func (m *Model) Assign(p color.LAB) int {
	return nearest(m.Centroids, p)
}

// Labels assigns every point to its nearest centroid.
func (m *Model) Labels(points []color.LAB) []int {
	labels := make([]int, len(points))
	for i, p := range points {
		labels[i] = nearest(m.Centroids, p)
	}
	return labels
}

// Inertia is the summed squared distance of each point to its assigned
// centroid: the within-cluster variance the elbow heuristic tracks.
func (m *Model) Inertia(points []color.LAB) float64 {
	total := 0.0
	for _, p := range points {
		c := m.Centroids[nearest(m.Centroids, p)]
		d := color.DeltaE(p, c)
		total += d * d
	}
	return total
}

func nearest(centroids []color.LAB, p color.LAB) int {
	best := 0
	bestD := math.MaxFloat64
	for i, c := range centroids {
		if d := color.DeltaE(p, c); d < bestD {
			bestD = d
			best = i
		}
	}
	return best
}

// seedPlusPlus picks initial centroids with the k-means++ scheme: the first
// uniformly, each next weighted by squared distance to the nearest chosen
// centroid.
func seedPlusPlus(points []color.LAB, k int, rng *rand.Rand) []color.LAB {
	n := len(points)
	centroids := make([]color.LAB, 0, k)
	centroids = append(centroids, points[rng.Intn(n)])

	dist2 := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		last := centroids[len(centroids)-1]
		for i, p := range points {
			d := color.DeltaE(p, last)
			d2 := d * d
			if len(centroids) == 1 || d2 < dist2[i] {
				dist2[i] = d2
			}
			total += dist2[i]
		}
		if total == 0 {
			// All remaining points coincide with a centroid; duplicate one.
			centroids = append(centroids, points[0])
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		chosen := n - 1
		for i, d2 := range dist2 {
			acc += d2
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}
	return centroids
}

func farthestPoint(points []color.LAB, centroids []color.LAB, labels []int) color.LAB {
	best := points[0]
	bestD := -1.0
	for i, p := range points {
		if d := color.DeltaE(p, centroids[labels[i]]); d > bestD {
			bestD = d
			best = p
		}
	}
	return best
}
