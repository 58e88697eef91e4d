package region

import (
	"context"
	"image"
	"image/color"
	"testing"
)

func twoToneImage(w, h int, left, right color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	return img
}

func TestGrowUniformImageHitsAreaCap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, gray)
		}
	}

	m, err := Grow(context.Background(), img, 0.5, 0.5)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if m.Width != 100 || m.Height != 100 {
		t.Fatalf("got %dx%d, want full resolution 100x100", m.Width, m.Height)
	}

	// On a uniform image growth is bounded only by the 35% cap. The
	// close/open cleanup moves the boundary a little either way.
	frac := float64(m.Area()) / float64(100*100)
	if frac < 0.25 || frac > 0.45 {
		t.Errorf("area fraction %f, want ~0.35", frac)
	}
}

func TestGrowStaysInsideSeedRegion(t *testing.T) {
	img := twoToneImage(100, 100,
		color.RGBA{R: 220, G: 30, B: 30, A: 255},
		color.RGBA{R: 30, G: 30, B: 220, A: 255},
	)

	m, err := Grow(context.Background(), img, 0.1, 0.5)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if m.Area() == 0 {
		t.Fatal("expected a non-empty region around the seed")
	}
	// No pixel may leak into the right (blue) half; allow the cleanup
	// no slack beyond the color boundary itself.
	for y := 0; y < 100; y++ {
		for x := 53; x < 100; x++ {
			if m.At(x, y) {
				t.Fatalf("region leaked across the color boundary at (%d,%d)", x, y)
			}
		}
	}
	if !m.At(10, 50) {
		t.Error("seed neighborhood missing from region")
	}
}

func TestGrowSeedCoordinateClamping(t *testing.T) {
	img := twoToneImage(60, 40,
		color.RGBA{R: 10, G: 200, B: 10, A: 255},
		color.RGBA{R: 200, G: 10, B: 200, A: 255},
	)

	// Out-of-range seed coordinates clamp to the nearest corner.
	m, err := Grow(context.Background(), img, -3, 7)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if m.Area() == 0 {
		t.Error("clamped seed should still grow a region")
	}
	if m.At(59, 0) {
		t.Error("region from bottom-left seed leaked into the far half")
	}
}

func TestGrowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := twoToneImage(600, 600,
		color.RGBA{R: 128, G: 128, B: 128, A: 255},
		color.RGBA{R: 128, G: 128, B: 128, A: 255},
	)
	if _, err := Grow(ctx, img, 0.5, 0.5); err == nil {
		t.Fatal("expected context error")
	}
}
