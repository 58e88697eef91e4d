package imaging

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garmentlab/huesplit/internal/mask"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	src := solidImage(8, 6, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	if err := SavePNG(path, src); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Bounds().Dx() != 8 || got.Bounds().Dy() != 6 {
		t.Errorf("got %v, want 8x6", got.Bounds())
	}
	r, g, b, _ := got.At(3, 3).RGBA()
	if r>>8 != 10 || g>>8 != 200 || b>>8 != 30 {
		t.Errorf("pixel mismatch after round trip: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := ExpandPath("~/pictures/a.png")
	if !strings.HasPrefix(got, home) {
		t.Errorf("ExpandPath did not expand ~: %q", got)
	}
	if ExpandPath("") != "" {
		t.Error("empty path must stay empty")
	}
}

func TestDownsample(t *testing.T) {
	t.Run("large image is bounded", func(t *testing.T) {
		img := solidImage(1000, 500, color.RGBA{A: 255})
		out := Downsample(img, 512)
		if out.Bounds().Dx() != 512 {
			t.Errorf("got width %d, want 512", out.Bounds().Dx())
		}
		if out.Bounds().Dy() != 256 {
			t.Errorf("got height %d, want 256", out.Bounds().Dy())
		}
	})

	t.Run("small image untouched", func(t *testing.T) {
		img := solidImage(100, 80, color.RGBA{A: 255})
		out := Downsample(img, 512)
		if out != image.Image(img) {
			t.Error("image within bounds must be returned unchanged")
		}
	})
}

func TestImageDataURLRoundTrip(t *testing.T) {
	src := solidImage(5, 4, color.RGBA{R: 250, G: 5, B: 5, A: 255})
	enc, err := EncodeImagePNG(src)
	if err != nil {
		t.Fatalf("EncodeImagePNG: %v", err)
	}
	if !strings.HasPrefix(enc, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL prefix: %q", enc[:24])
	}

	got, err := DecodeImageDataURL(enc)
	if err != nil {
		t.Fatalf("DecodeImageDataURL: %v", err)
	}
	if got.Bounds().Dx() != 5 || got.Bounds().Dy() != 4 {
		t.Errorf("got %v, want 5x4", got.Bounds())
	}
}

func TestDecodeImageDataURLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a data URL", "http://example.com/a.png"},
		{"missing payload", "data:image/png;base64"},
		{"bad base64", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeImageDataURL(tt.input); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMaskDataURLRoundTrip(t *testing.T) {
	m := mask.New(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 5; x++ {
			m.Set(x, y, true)
		}
	}

	enc, err := EncodeMaskPNG(m, 0)
	if err != nil {
		t.Fatalf("EncodeMaskPNG: %v", err)
	}
	got, err := DecodeMaskDataURL(enc, 10, 10)
	if err != nil {
		t.Fatalf("DecodeMaskDataURL: %v", err)
	}
	for i := range m.Bits {
		if got.Bits[i] != m.Bits[i] {
			t.Fatal("mask changed across encode/decode")
		}
	}
}

func TestDecodeMaskDataURLResizes(t *testing.T) {
	m := mask.New(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 5; x++ {
			m.Set(x, y, true)
		}
	}
	enc, err := EncodeMaskPNG(m, 0)
	if err != nil {
		t.Fatalf("EncodeMaskPNG: %v", err)
	}

	got, err := DecodeMaskDataURL(enc, 20, 20)
	if err != nil {
		t.Fatalf("DecodeMaskDataURL: %v", err)
	}
	if got.Width != 20 || got.Height != 20 {
		t.Fatalf("got %dx%d, want 20x20", got.Width, got.Height)
	}
	frac := float64(got.Area()) / float64(20*20)
	if frac < 0.4 || frac > 0.6 {
		t.Errorf("resized mask area fraction %f strays from 0.5", frac)
	}
}

func TestEncodeCutoutPNG(t *testing.T) {
	img := solidImage(6, 6, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	m := mask.New(6, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 3; x++ {
			m.Set(x, y, true)
		}
	}

	enc, err := EncodeCutoutPNG(img, m, 0)
	if err != nil {
		t.Fatalf("EncodeCutoutPNG: %v", err)
	}
	cut, err := DecodeImageDataURL(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, _, _, aIn := cut.At(1, 1).RGBA()
	_, _, _, aOut := cut.At(5, 1).RGBA()
	if aIn>>8 != 255 {
		t.Errorf("masked pixel alpha %d, want 255", aIn>>8)
	}
	if aOut>>8 != 0 {
		t.Errorf("unmasked pixel alpha %d, want 0", aOut>>8)
	}
}
