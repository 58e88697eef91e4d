package cluster

import "github.com/garmentlab/huesplit/internal/color"

// MergeCentroids partitions centroid indices into groups of perceptually
// near-duplicate colors: every pair with Delta-E <= threshold is unioned.
// The result maps each original index to a dense 0..M-1 group id, with
// group ids assigned by first-encountered root in a single forward scan,
// so the output is deterministic for a given input order.
//
// threshold 0 merges only exactly identical centroids; +Inf merges all.
func MergeCentroids(centroids []color.LAB, threshold float64) []int {
	n := len(centroids)
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if color.DeltaE(centroids[i], centroids[j]) <= threshold {
				uf.union(i, j)
			}
		}
	}

	groups := make([]int, n)
	rootID := make([]int, n)
	for i := range rootID {
		rootID[i] = -1
	}
	next := 0
	for i := 0; i < n; i++ {
		r := uf.find(i)
		if rootID[r] == -1 {
			rootID[r] = next
			next++
		}
		groups[i] = rootID[r]
	}
	return groups
}

// GroupCount returns the number of distinct group ids in a MergeCentroids
// result (group ids are dense, so it is max+1).
func GroupCount(groups []int) int {
	max := -1
	for _, g := range groups {
		if g > max {
			max = g
		}
	}
	return max + 1
}

// unionFind is a transient partition of 0..n-1 with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(a int) int {
	for u.parent[a] != a {
		u.parent[a] = u.parent[u.parent[a]]
		a = u.parent[a]
	}
	return a
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
