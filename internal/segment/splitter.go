package segment

import (
	"context"
	"image"
	"math/rand"

	"github.com/garmentlab/huesplit/internal/cluster"
	"github.com/garmentlab/huesplit/internal/color"
	"github.com/garmentlab/huesplit/internal/mask"
)

const (
	// minSplitPixels is the smallest cleaned region worth clustering.
	minSplitPixels = 10
	// splitMergeThreshold is the Delta-E under which two fitted centroids
	// are the same garment color split by shading.
	splitMergeThreshold = 10.0
	// silhouetteFloor rejects clusterings whose best separation score is
	// too weak to trust.
	silhouetteFloor = 0.15
	// channelStdFloor marks a region as effectively single-colored.
	channelStdFloor = 2.0
	// cleanRadius is the closing radius for mask cleanup.
	cleanRadius = 2
	// ownComponentFrac drops object mask islands under this share of the
	// mask's own area.
	ownComponentFrac = 0.01
)

// SplitOptions tunes SplitObjectColors. The zero value of MaxColors means
// the default of 6.
type SplitOptions struct {
	// MaxColors caps the cluster count searched, clamped to 2..10.
	MaxColors int
	// MinAreaRatio drops layers under this share of the object area.
	MinAreaRatio float64
	// Seed drives sampling and k-means; identical inputs and seed yield
	// identical layers.
	Seed int64
}

func (o SplitOptions) normalized() SplitOptions {
	if o.MaxColors == 0 {
		o.MaxColors = 6
	}
	if o.MaxColors < 2 {
		o.MaxColors = 2
	}
	if o.MaxColors > 10 {
		o.MaxColors = 10
	}
	if o.MinAreaRatio < 0 {
		o.MinAreaRatio = 0
	}
	if o.MinAreaRatio > 0.5 {
		o.MinAreaRatio = 0.5
	}
	return o
}

// SplitObjectColors partitions the masked object into layers of distinct
// colors. The cluster count is chosen by silhouette score over k =
// 2..MaxColors, collapsing to a single layer when the region is too flat
// or no clustering separates well; near-duplicate centroids are merged
// perceptually before the final exact assignment. The returned masks are
// pairwise disjoint subsets of the cleaned object mask, so the area
// fractions sum to at most 1.
func SplitObjectColors(ctx context.Context, img image.Image, obj *mask.Mask, opts SplitOptions) ([]Layer, error) {
	if img == nil || obj == nil || !obj.MatchesImage(img) {
		return nil, ErrInvalidInput
	}
	opts = opts.normalized()

	cleaned := mask.Clean(obj, mask.CleanOptions{
		ClosingRadius:    cleanRadius,
		FillHoles:        true,
		MinComponentArea: int(float64(obj.Area()) * ownComponentFrac),
	})
	objArea := cleaned.Area()
	if objArea == 0 {
		return nil, ErrEmptyMask
	}
	if objArea < minSplitPixels {
		return nil, ErrInsufficientPixels
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, _, buf := color.LABBuffer(img)
	indices := make([]int, 0, objArea)
	points := make([]color.LAB, 0, objArea)
	for i, on := range cleaned.Bits {
		if on {
			indices = append(indices, i)
			points = append(points, buf[i])
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	sample := subsampleLAB(points, maxFitSample, rng)
	silPoints := subsampleLAB(sample, maxSilhouetteSample, rng)

	centroids := pickCentroids(sample, silPoints, opts.MaxColors, rng)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := &cluster.Model{Centroids: centroids}
	members := make([]*mask.Mask, len(centroids))
	for c := range members {
		members[c] = mask.New(cleaned.Width, cleaned.Height)
	}
	for j, i := range indices {
		members[model.Assign(points[j])].Bits[i] = true
	}

	floor := int(opts.MinAreaRatio * float64(objArea))
	if floor < 1 {
		floor = 1
	}
	var raw []rawLayer
	for c, m := range members {
		// The member masks partition the object; closing one could only
		// annex its siblings' pixels. Keep the exact assignment and prune
		// sub-floor islands.
		cm := mask.Clean(m, mask.CleanOptions{MinComponentArea: floor})
		area := cm.Area()
		if area < floor {
			continue
		}
		raw = append(raw, rawLayer{m: cm, centroid: centroids[c], area: area})
	}
	if len(raw) == 0 {
		// Degenerate split: the whole object is one layer.
		raw = []rawLayer{{m: cleaned, centroid: centroids[0], area: objArea}}
	}
	return finalizeLayers(raw, objArea), nil
}

// pickCentroids runs the adaptive cluster count search: the best k by
// silhouette, collapsed to one centroid when the region is near-uniform or
// separation is weak, then perceptual merging of near-duplicates.
func pickCentroids(sample, silPoints []color.LAB, maxColors int, rng *rand.Rand) []color.LAB {
	single := []color.LAB{color.MeanLAB(sample)}
	if meanChannelStd(sample) < channelStdFloor {
		return single
	}

	bestScore := -2.0
	var best *cluster.Model
	for k := 2; k <= maxColors && k <= len(sample); k++ {
		m := cluster.KMeans(sample, k, rng)
		score := cluster.Silhouette(silPoints, m.Labels(silPoints), k)
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	if best == nil || bestScore < silhouetteFloor {
		return single
	}

	groups := cluster.MergeCentroids(best.Centroids, splitMergeThreshold)
	return groupedCentroids(best.Centroids, groups, nil)
}

// groupedCentroids collapses centroids into one per merge group, averaging
// members (weighted when weights are given).
func groupedCentroids(centroids []color.LAB, groups []int, weights []float64) []color.LAB {
	n := cluster.GroupCount(groups)
	out := make([]color.LAB, n)
	for g := 0; g < n; g++ {
		var members []color.LAB
		var ws []float64
		for i, gi := range groups {
			if gi != g {
				continue
			}
			members = append(members, centroids[i])
			if weights != nil {
				ws = append(ws, weights[i])
			}
		}
		if weights != nil {
			out[g] = color.WeightedMeanLAB(members, ws)
		} else {
			out[g] = color.MeanLAB(members)
		}
	}
	return out
}
