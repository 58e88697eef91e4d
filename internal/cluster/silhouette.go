package cluster

import "github.com/garmentlab/huesplit/internal/color"

// Silhouette computes the mean silhouette coefficient of a labeling: for
// each point, (b-a)/max(a,b) where a is its mean distance to its own
// cluster and b the smallest mean distance to another cluster. Higher means
// better separated; the score is undefined for fewer than two non-empty
// clusters, for which -1 is returned. Points alone in their cluster
// contribute 0, matching the usual convention.
//
// The computation is exact (pairwise); callers bound the point count.
func Silhouette(points []color.LAB, labels []int, k int) float64 {
	n := len(points)
	if n == 0 || k < 2 {
		return -1
	}

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	nonEmpty := 0
	for _, c := range counts {
		if c > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return -1
	}

	sums := make([]float64, k)
	total := 0.0
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sums[labels[j]] += color.DeltaE(points[i], points[j])
		}

		own := labels[i]
		if counts[own] <= 1 {
			continue // silhouette of a singleton is 0
		}
		a := sums[own] / float64(counts[own]-1)

		b := -1.0
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			mean := sums[c] / float64(counts[c])
			if b < 0 || mean < b {
				b = mean
			}
		}

		max := a
		if b > max {
			max = b
		}
		if max > 0 {
			total += (b - a) / max
		}
	}
	return total / float64(n)
}
