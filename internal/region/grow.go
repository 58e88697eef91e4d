// Package region grows a connected object mask from a seed point using
// perceptual color similarity.
package region

import (
	"context"
	"image"

	"github.com/garmentlab/huesplit/internal/color"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
)

const (
	// maxGrowDim bounds the longest side of the working image; growth runs
	// on the downsampled copy and the mask is upsampled afterwards.
	maxGrowDim = 512
	// growTolerance is the scaled-LAB Delta-E under which a neighbor joins
	// the region.
	growTolerance = 12.0
	// growAreaCap stops growth once the region reaches this fraction of the
	// working image, a safety bound on low-contrast images.
	growAreaCap = 0.35
	// cleanRadius is the structuring-element radius for the close/open
	// cleanup pass (a 5x5 element).
	cleanRadius = 2
)

// Grow flood-fills a region around the normalized seed point (x, y) in
// [0,1]x[0,1]. It never fails on image content: an isolated seed yields an
// all-false mask, which callers must treat as "no region found". The only
// error returned is context cancellation.
func Grow(ctx context.Context, img image.Image, x, y float64) (*mask.Mask, error) {
	bounds := img.Bounds()
	fullW, fullH := bounds.Dx(), bounds.Dy()
	if fullW == 0 || fullH == 0 {
		return mask.New(fullW, fullH), nil
	}

	small := imaging.Downsample(img, maxGrowDim)
	w, h, lab := color.LABBuffer(small)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	px := clampScale(x, w)
	py := clampScale(y, h)
	seed := lab[py*w+px]

	m := mask.New(w, h)
	visited := make([]bool, w*h)
	queue := make([]int, 0, 1024)

	start := py*w + px
	visited[start] = true
	queue = append(queue, start)

	maxPixels := int(float64(w*h) * growAreaCap)
	admitted := 0
	steps := 0

	// Breadth-first, so hitting the area cap leaves a compact region. A
	// depth-first frontier is ragged and the closing below would inflate
	// it far past the cap.
	for head := 0; head < len(queue) && admitted < maxPixels; head++ {
		i := queue[head]
		m.Bits[i] = true
		admitted++

		steps++
		if steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cx, cy := i%w, i/w
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if visited[ni] {
				continue
			}
			visited[ni] = true
			if color.DeltaE(lab[ni], seed) <= growTolerance {
				queue = append(queue, ni)
			}
		}
	}

	// Closing bridges tolerance dropouts, opening removes spurious
	// single-pixel admissions along the threshold boundary.
	m = mask.Open(mask.Close(m, cleanRadius), cleanRadius)

	return m.Resized(fullW, fullH), nil
}

// clampScale maps a normalized coordinate in [0,1] onto a pixel index in
// [0, size-1], clamping out-of-range input.
func clampScale(v float64, size int) int {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p := int(v * float64(size-1))
	if p < 0 {
		p = 0
	}
	if p >= size {
		p = size - 1
	}
	return p
}
