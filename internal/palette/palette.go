// Package palette extracts small representative color palettes from
// images, used to preview a garment's tones before a full segmentation.
// Unlike the segmentation paths, palette extraction is advisory and does
// not promise determinism.
package palette

import (
	"image"
	"math"
	"sort"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/garmentlab/huesplit/internal/color"
)

// Method selects the extraction backend.
type Method int

const (
	// MethodDominant buckets pixels by the dominant-color heuristic.
	MethodDominant Method = iota
	// MethodKMeans clusters sampled pixels and falls back to
	// MethodDominant when clustering yields nothing.
	MethodKMeans
)

func (m Method) String() string {
	if m == MethodKMeans {
		return "kmeans"
	}
	return "dominant"
}

// ParseMethod maps the wire/CLI spelling to a Method; unknown spellings
// fall back to MethodDominant.
func ParseMethod(s string) Method {
	if s == "kmeans" {
		return MethodKMeans
	}
	return MethodDominant
}

// entry is a candidate palette color with its pixel-population weight.
type entry struct {
	col    color.RGBA
	weight float64
}

const maxPaletteSamples = 12000

// Extract returns up to k palette colors for the image, strongest first.
func Extract(img image.Image, k int, method Method) []color.RGBA {
	if img == nil || k <= 0 {
		return nil
	}
	if method == MethodKMeans {
		if p := extractKMeans(img, k); len(p) > 0 {
			return p
		}
	}
	return extractDominant(img, k)
}

func extractDominant(img image.Image, k int) []color.RGBA {
	nCandidates := k * 8
	if nCandidates < 24 {
		nCandidates = 24
	}
	candidates := dominantcolor.FindWeight(img, nCandidates)

	cands := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		cands = append(cands, entry{col: color.FromStdColor(c.RGBA), weight: w})
	}
	if len(cands) == 0 {
		cands = []entry{{col: color.RGBA{R: 128, G: 128, B: 128, A: 255}, weight: 1}}
	}
	return selectDiverse(cands, k)
}

func extractKMeans(img image.Image, k int) []color.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	step := 1
	if w*h > maxPaletteSamples {
		step = int(math.Sqrt(float64(w*h)/float64(maxPaletteSamples))) + 1
	}
	dataset := make(clusters.Observations, 0, maxPaletteSamples)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	// Over-cluster, then thin down to k diverse colors.
	workK := k * 4
	if workK < k+2 {
		workK = k + 2
	}
	if workK > len(dataset) {
		workK = len(dataset)
	}
	cc, err := kmeans.New().Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil
	}

	cands := make([]entry, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		cands = append(cands, entry{
			col: color.RGBA{
				R: clampByte(c.Center[0] * 255),
				G: clampByte(c.Center[1] * 255),
				B: clampByte(c.Center[2] * 255),
				A: 255,
			},
			weight: float64(len(c.Observations)),
		})
	}
	if len(cands) == 0 {
		return nil
	}
	return selectDiverse(cands, k)
}

// selectDiverse greedily picks k candidates: the heaviest first, then
// whichever remaining color maximizes perceptual distance to the picks so
// far, nudged toward heavier candidates.
func selectDiverse(cands []entry, k int) []color.RGBA {
	if len(cands) == 0 {
		return nil
	}
	if k > len(cands) {
		k = len(cands)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].weight > cands[j].weight
	})
	maxW := cands[0].weight
	if maxW <= 0 {
		maxW = 1
	}

	labs := make([]color.LAB, len(cands))
	for i, c := range cands {
		labs[i] = c.col.ToLAB()
	}

	picked := []int{0}
	taken := make([]bool, len(cands))
	taken[0] = true
	for len(picked) < k {
		bestIdx := -1
		bestScore := -1.0
		for i := range cands {
			if taken[i] {
				continue
			}
			minD := math.MaxFloat64
			for _, p := range picked {
				if d := color.DeltaE(labs[i], labs[p]); d < minD {
					minD = d
				}
			}
			score := minD * (0.55 + 0.45*math.Sqrt(cands[i].weight/maxW))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		taken[bestIdx] = true
		picked = append(picked, bestIdx)
	}

	out := make([]color.RGBA, len(picked))
	for i, idx := range picked {
		out[i] = cands[idx].col
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
