package palette

import (
	"image"
	stdcolor "image/color"
	"testing"

	"github.com/garmentlab/huesplit/internal/color"
)

func halvesImage(w, h int, a, b stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, a)
			} else {
				img.SetNRGBA(x, y, b)
			}
		}
	}
	return img
}

func nearestDistance(p color.RGBA, targets []color.RGBA) float64 {
	best := -1.0
	pl := p.ToLAB()
	for _, t := range targets {
		if d := color.DeltaE(pl, t.ToLAB()); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func TestExtractCoversBothTones(t *testing.T) {
	img := halvesImage(120, 120,
		stdcolor.NRGBA{R: 230, G: 20, B: 20, A: 255},
		stdcolor.NRGBA{R: 20, G: 20, B: 230, A: 255},
	)

	for _, method := range []Method{MethodDominant, MethodKMeans} {
		t.Run(method.String(), func(t *testing.T) {
			got := Extract(img, 2, method)
			if len(got) != 2 {
				t.Fatalf("got %d colors, want 2", len(got))
			}
			want := []color.RGBA{
				{R: 230, G: 20, B: 20, A: 255},
				{R: 20, G: 20, B: 230, A: 255},
			}
			for _, w := range want {
				if d := nearestDistance(w, got); d > 40 {
					t.Errorf("no palette color near %s (distance %f)", w.Hex(), d)
				}
			}
		})
	}
}

func TestExtractDegenerateInputs(t *testing.T) {
	img := halvesImage(10, 10,
		stdcolor.NRGBA{R: 100, A: 255},
		stdcolor.NRGBA{R: 100, A: 255},
	)
	if got := Extract(img, 0, MethodDominant); got != nil {
		t.Errorf("k=0 should yield nil, got %v", got)
	}
	if got := Extract(nil, 3, MethodDominant); got != nil {
		t.Errorf("nil image should yield nil, got %v", got)
	}
}

func TestParseMethod(t *testing.T) {
	if ParseMethod("kmeans") != MethodKMeans {
		t.Error("kmeans spelling should parse to MethodKMeans")
	}
	if ParseMethod("anything-else") != MethodDominant {
		t.Error("unknown spellings fall back to MethodDominant")
	}
}

func TestSelectDiversePrefersHeaviestFirst(t *testing.T) {
	cands := []entry{
		{col: color.RGBA{R: 10, G: 10, B: 10, A: 255}, weight: 1},
		{col: color.RGBA{R: 250, G: 250, B: 250, A: 255}, weight: 100},
		{col: color.RGBA{R: 12, G: 12, B: 12, A: 255}, weight: 2},
	}
	got := selectDiverse(cands, 2)
	if len(got) != 2 {
		t.Fatalf("got %d colors, want 2", len(got))
	}
	if got[0].R != 250 {
		t.Errorf("first pick = %s, want the heaviest candidate", got[0].Hex())
	}
	// The second pick must be far from the first, not the near-duplicate.
	if d := color.DeltaE(got[0].ToLAB(), got[1].ToLAB()); d < 20 {
		t.Errorf("second pick too close to first (distance %f)", d)
	}
}
