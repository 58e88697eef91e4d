package segment

import (
	"context"
	"image"
	"math/rand"

	"github.com/garmentlab/huesplit/internal/cluster"
	"github.com/garmentlab/huesplit/internal/color"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
)

const (
	// maxLayerDim is the working resolution for whole-image layering;
	// masks are upscaled back afterwards.
	maxLayerDim = 512
	// elbowImprovement is the relative inertia gain below which adding a
	// cluster stops paying off.
	elbowImprovement = 0.08
	// elbowCap bounds the dynamic cluster count search.
	elbowCap = 10
	// borderCoverageFrac and borderAreaFrac identify a background
	// cluster: it hugs most of the image border and is large.
	borderCoverageFrac = 0.60
	borderAreaFrac     = 0.15
)

// LayerOptions tunes whole-image layering. Zero values mean defaults:
// MaxColors 10, MergeThreshold 10.
type LayerOptions struct {
	// MaxColors caps the dynamic cluster count, clamped to 2..10.
	MaxColors int
	// MinAreaRatio drops layers under this share of the image area.
	MinAreaRatio float64
	// MergeThreshold is the Delta-E under which fitted clusters collapse
	// into one layer.
	MergeThreshold float64
	// Seed drives sampling and k-means.
	Seed int64
}

func (o LayerOptions) normalized() LayerOptions {
	if o.MaxColors == 0 {
		o.MaxColors = elbowCap
	}
	if o.MaxColors < 2 {
		o.MaxColors = 2
	}
	if o.MaxColors > elbowCap {
		o.MaxColors = elbowCap
	}
	if o.MinAreaRatio < 0 {
		o.MinAreaRatio = 0
	}
	if o.MinAreaRatio > 0.5 {
		o.MinAreaRatio = 0.5
	}
	if o.MergeThreshold == 0 {
		o.MergeThreshold = splitMergeThreshold
	}
	if o.MergeThreshold < 0 {
		o.MergeThreshold = 0
	}
	return o
}

// LayerImageColors segments the whole image into color layers with a
// dynamically chosen cluster count: an elbow search over the within-cluster
// inertia picks k, a dominant border-hugging cluster is suppressed as
// background, and perceptually close clusters are merged with area-weighted
// centroids. Work happens at a reduced resolution; the returned masks are
// upscaled to the input size.
func LayerImageColors(ctx context.Context, img image.Image, opts LayerOptions) ([]Layer, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	b := img.Bounds()
	fullW, fullH := b.Dx(), b.Dy()
	if fullW == 0 || fullH == 0 {
		return nil, ErrInvalidInput
	}
	opts = opts.normalized()

	small := imaging.Downsample(img, maxLayerDim)
	w, h, buf := color.LABBuffer(small)
	rng := rand.New(rand.NewSource(opts.Seed))
	sample := subsampleLAB(buf, maxLayerSample, rng)

	model := elbowModel(sample, opts.MaxColors, rng)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	masks, areas := labelMasks(model, buf, w, h)
	kept := suppressBorderCluster(masks, areas, w, h)

	// The area floor applies before merging; a sub-floor cluster must not
	// survive by riding along inside a bigger neighbor.
	if opts.MinAreaRatio > 0 {
		floor := opts.MinAreaRatio * float64(w*h)
		filtered := kept[:0]
		for _, c := range kept {
			if float64(areas[c]) >= floor {
				filtered = append(filtered, c)
			}
		}
		kept = filtered
	}

	keptCentroids := make([]color.LAB, len(kept))
	weights := make([]float64, len(kept))
	for i, c := range kept {
		keptCentroids[i] = model.Centroids[c]
		weights[i] = float64(areas[c])
	}
	groups := cluster.MergeCentroids(keptCentroids, opts.MergeThreshold)
	merged := groupedCentroids(keptCentroids, groups, weights)

	unions := make([]*mask.Mask, len(merged))
	for i, c := range kept {
		g := groups[i]
		if unions[g] == nil {
			unions[g] = masks[c].Clone()
		} else {
			unions[g] = unions[g].Union(masks[c])
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return assembleLayers(unions, merged, buf, fullW, fullH, opts.MinAreaRatio), nil
}

// LayerImageFixedK segments the whole image into exactly k color layers
// (clamped to 2..8), with no elbow search, background suppression, or
// merging. Layers that clean away to nothing are still dropped, so fewer
// than k layers can come back.
func LayerImageFixedK(ctx context.Context, img image.Image, k int, opts LayerOptions) ([]Layer, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	b := img.Bounds()
	fullW, fullH := b.Dx(), b.Dy()
	if fullW == 0 || fullH == 0 {
		return nil, ErrInvalidInput
	}
	opts = opts.normalized()
	if k < 2 {
		k = 2
	}
	if k > 8 {
		k = 8
	}

	small := imaging.Downsample(img, maxLayerDim)
	w, h, buf := color.LABBuffer(small)
	rng := rand.New(rand.NewSource(opts.Seed))
	sample := subsampleLAB(buf, maxLayerSample, rng)

	model := cluster.KMeans(sample, k, rng)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	masks, _ := labelMasks(model, buf, w, h)
	return assembleLayers(masks, model.Centroids, buf, fullW, fullH, opts.MinAreaRatio), nil
}

// elbowModel grows k until another cluster stops improving the fit: the
// search keeps the previous model once the relative inertia gain at k >= 3
// drops under the threshold. A perfect fit ends the search immediately.
func elbowModel(sample []color.LAB, maxK int, rng *rand.Rand) *cluster.Model {
	prev := cluster.KMeans(sample, 1, rng)
	prevInertia := prev.Inertia(sample)
	for k := 2; k <= maxK && k <= len(sample); k++ {
		if prevInertia <= 0 {
			break
		}
		m := cluster.KMeans(sample, k, rng)
		inertia := m.Inertia(sample)
		if k >= 3 && (prevInertia-inertia)/prevInertia < elbowImprovement {
			break
		}
		prev, prevInertia = m, inertia
	}
	return prev
}

// labelMasks assigns every buffered pixel to its nearest centroid and
// returns one reduced-resolution mask per centroid plus the areas.
func labelMasks(model *cluster.Model, buf []color.LAB, w, h int) ([]*mask.Mask, []int) {
	k := len(model.Centroids)
	masks := make([]*mask.Mask, k)
	for c := range masks {
		masks[c] = mask.New(w, h)
	}
	areas := make([]int, k)
	for i, p := range buf {
		c := model.Assign(p)
		masks[c].Bits[i] = true
		areas[c]++
	}
	return masks, areas
}

// suppressBorderCluster returns the centroid indices to keep, dropping
// clusters that cover most of the image border and a large area share.
// With two or fewer clusters nothing is dropped; a subject against a plain
// wall would otherwise lose half the image.
func suppressBorderCluster(masks []*mask.Mask, areas []int, w, h int) []int {
	k := len(masks)
	keep := make([]int, 0, k)
	if k <= 2 {
		for c := 0; c < k; c++ {
			keep = append(keep, c)
		}
		return keep
	}

	borderTotal := 0
	borderCounts := make([]int, k)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y != 0 && y != h-1 && x != 0 && x != w-1 {
				continue
			}
			borderTotal++
			for c := 0; c < k; c++ {
				if masks[c].At(x, y) {
					borderCounts[c]++
					break
				}
			}
		}
	}

	total := float64(w * h)
	for c := 0; c < k; c++ {
		coverage := float64(borderCounts[c]) / float64(borderTotal)
		if coverage >= borderCoverageFrac && float64(areas[c])/total >= borderAreaFrac {
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == 0 {
		for c := 0; c < k; c++ {
			keep = append(keep, c)
		}
	}
	return keep
}

// assembleLayers upscales the reduced-resolution cluster masks, cleans
// them, applies the area floor, and orders the survivors. The returned
// layer masks are pairwise disjoint. An empty result degrades to a single
// whole-image layer.
func assembleLayers(masks []*mask.Mask, centroids []color.LAB, buf []color.LAB, fullW, fullH int, minAreaRatio float64) []Layer {
	fullArea := fullW * fullH
	floor := int(minAreaRatio * float64(fullArea))
	if floor < 1 {
		floor = 1
	}

	owner := make([]int, fullArea)
	for i := range owner {
		owner[i] = -1
	}
	cms := make([]*mask.Mask, len(masks))
	for c, m := range masks {
		up := m.Resized(fullW, fullH)
		for i, on := range up.Bits {
			if on {
				owner[i] = c
			}
		}
		cms[c] = mask.Clean(up, mask.CleanOptions{
			ClosingRadius:    cleanRadius,
			MinComponentArea: floor,
		})
	}

	// Closing can annex pixels a sibling cluster labeled; contested pixels
	// go back to their labeling cluster so the layers stay disjoint. Pixels
	// no kept cluster labeled (a suppressed or dropped one did) go to the
	// first closing that reaches them.
	claimed := mask.New(fullW, fullH)
	for c, cm := range cms {
		for i, on := range cm.Bits {
			if !on {
				continue
			}
			switch {
			case owner[i] == c:
			case owner[i] >= 0:
				cm.Bits[i] = false
			case claimed.Bits[i]:
				cm.Bits[i] = false
			default:
				claimed.Bits[i] = true
			}
		}
	}

	var raw []rawLayer
	for c, cm := range cms {
		area := cm.Area()
		if area < floor {
			continue
		}
		raw = append(raw, rawLayer{m: cm, centroid: centroids[c], area: area})
	}
	if len(raw) == 0 {
		full := mask.New(fullW, fullH)
		for i := range full.Bits {
			full.Bits[i] = true
		}
		raw = []rawLayer{{m: full, centroid: color.MeanLAB(buf), area: fullArea}}
	}
	return finalizeLayers(raw, fullArea)
}
