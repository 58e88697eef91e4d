package huesplit

import (
	"context"
	"errors"
	"image"
	stdcolor "image/color"
	"math"
	"testing"
)

func fillImage(w, h int, c stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func splitImage(w, h int, left, right stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, left)
			} else {
				img.SetNRGBA(x, y, right)
			}
		}
	}
	return img
}

func grayRect(w, h, x0, y0, x1, y1 int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.SetGray(x, y, stdcolor.Gray{Y: 255})
		}
	}
	return g
}

func grayArea(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v >= 128 {
			n++
		}
	}
	return n
}

type stubGenerator struct {
	masks []*image.Gray
	err   error
}

func (s stubGenerator) Generate(ctx context.Context, img image.Image) ([]*image.Gray, error) {
	return s.masks, s.err
}

var (
	redC  = stdcolor.NRGBA{R: 255, A: 255}
	blueC = stdcolor.NRGBA{B: 255, A: 255}
	grayC = stdcolor.NRGBA{R: 120, G: 120, B: 120, A: 255}
)

func TestObjectFromPointUsesSmallestCandidate(t *testing.T) {
	img := fillImage(100, 100, grayC)
	small := grayRect(100, 100, 40, 40, 60, 60)
	large := grayRect(100, 100, 10, 10, 90, 90)
	m := WithMaskGenerator(stubGenerator{masks: []*image.Gray{large, small}}, "cpu")

	got, usedModel, err := ObjectFromPoint(context.Background(), m, img, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !usedModel {
		t.Error("expected the model mask to be used")
	}
	if grayArea(got) != 400 {
		t.Errorf("selected mask area = %d, want 400 (the smaller candidate)", grayArea(got))
	}
}

func TestObjectFromPointFallsBackToRegionGrowing(t *testing.T) {
	img := fillImage(100, 100, grayC)

	tests := []struct {
		name  string
		model Model
	}{
		{"no model", NoModel()},
		{"model fails", WithMaskGenerator(stubGenerator{err: errors.New("down")}, "cuda")},
		{"no usable candidate", WithMaskGenerator(stubGenerator{masks: []*image.Gray{grayRect(10, 10, 0, 0, 5, 5)}}, "cpu")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, usedModel, err := ObjectFromPoint(context.Background(), tt.model, img, 0.5, 0.5)
			if err != nil {
				t.Fatal(err)
			}
			if usedModel {
				t.Error("fallback path should not report model use")
			}
			if grayArea(got) == 0 {
				t.Error("grown region is empty")
			}
		})
	}
}

func TestObjectFromPointValidatesInput(t *testing.T) {
	img := fillImage(10, 10, grayC)
	if _, _, err := ObjectFromPoint(context.Background(), NoModel(), nil, 0.5, 0.5); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil image: err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := ObjectFromPoint(context.Background(), NoModel(), img, 1.5, 0.5); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("out-of-range point: err = %v, want ErrInvalidInput", err)
	}
}

func TestSplitObjectColorsFacade(t *testing.T) {
	img := splitImage(80, 80, redC, blueC)
	obj := grayRect(80, 80, 0, 0, 80, 80)

	layers, err := SplitObjectColors(context.Background(), img, obj, DefaultSplitOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(layers))
	}
	for i, l := range layers {
		if math.Abs(l.AreaFrac-0.5) > 0.02 {
			t.Errorf("layer %d AreaFrac = %f, want ~0.5", i, l.AreaFrac)
		}
		if l.Mask == nil || l.Mask.Bounds().Dx() != 80 {
			t.Errorf("layer %d mask missing or wrong size", i)
		}
	}

	if _, err := SplitObjectColors(context.Background(), img, nil, DefaultSplitOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil mask: err = %v, want ErrInvalidInput", err)
	}
}

func TestColorLayersGroupsCandidates(t *testing.T) {
	img := splitImage(100, 100, redC, blueC)
	left := grayRect(100, 100, 0, 0, 50, 100)
	right := grayRect(100, 100, 50, 0, 100, 100)
	m := WithMaskGenerator(stubGenerator{masks: []*image.Gray{left, right}}, "cpu")

	layers, usedModel, err := ColorLayers(context.Background(), m, img, DefaultLayerOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !usedModel {
		t.Error("expected candidate masks to be used")
	}
	if len(layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(layers))
	}
	for i, l := range layers {
		if math.Abs(l.AreaFrac-0.5) > 0.01 {
			t.Errorf("layer %d AreaFrac = %f, want 0.5", i, l.AreaFrac)
		}
	}
}

func TestColorLayersFallsBackToPixelClustering(t *testing.T) {
	img := splitImage(100, 100, redC, blueC)

	layers, usedModel, err := ColorLayers(context.Background(), NoModel(), img, DefaultLayerOptions())
	if err != nil {
		t.Fatal(err)
	}
	if usedModel {
		t.Error("fallback path should not report model use")
	}
	if len(layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(layers))
	}
}

func TestGrowRegionFacade(t *testing.T) {
	img := fillImage(60, 60, grayC)
	got, err := GrowRegion(context.Background(), img, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	frac := float64(grayArea(got)) / (60.0 * 60.0)
	if frac < 0.25 || frac > 0.45 {
		t.Errorf("grown fraction = %f, want within the growth cap band", frac)
	}
}

func TestPaletteColorsFacade(t *testing.T) {
	img := splitImage(80, 80, redC, blueC)
	hexes := PaletteColors(img, 2, "dominant")
	if len(hexes) != 2 {
		t.Fatalf("got %d colors, want 2", len(hexes))
	}
	for _, h := range hexes {
		if len(h) != 7 || h[0] != '#' {
			t.Errorf("malformed hex color %q", h)
		}
	}
}

func TestLayerImageFixedKFacade(t *testing.T) {
	img := splitImage(90, 90, redC, blueC)
	opts := DefaultLayerOptions()
	opts.NumLayers = 4

	layers, err := LayerImageFixedK(context.Background(), img, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 2 {
		t.Fatalf("got %d layers, want 2 real colors", len(layers))
	}
}
