// Package preview renders human-checkable summaries of a segmentation:
// a flat recolored composite where every pixel takes its layer's
// representative color, and a palette strip of the layer colors.
package preview

import (
	"image"
	stdcolor "image/color"

	"github.com/garmentlab/huesplit/internal/color"
)

// Layer is one color layer to visualize. Color is a #rrggbb hex string;
// unparseable colors render as mid-gray.
type Layer struct {
	Mask  *image.Gray
	Color string
}

// Compose flattens the layers into a single image: pixels take the color
// of the last layer covering them, so callers should pass layers largest
// first. Uncovered pixels stay white.
func Compose(width, height int, layers []Layer) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	white := stdcolor.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetNRGBA(x, y, white)
		}
	}

	for _, l := range layers {
		if l.Mask == nil {
			continue
		}
		c := layerColor(l.Color)
		b := l.Mask.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > width {
			w = width
		}
		if h > height {
			h = height
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if l.Mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= 128 {
					out.SetNRGBA(x, y, c)
				}
			}
		}
	}
	return out
}

// Strip renders the layer colors as a horizontal swatch strip, one square
// tile per layer. tileSize <= 0 defaults to 64.
func Strip(layers []Layer, tileSize int) *image.NRGBA {
	if tileSize <= 0 {
		tileSize = 64
	}
	if len(layers) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, tileSize, tileSize))
	}

	out := image.NewNRGBA(image.Rect(0, 0, tileSize*len(layers), tileSize))
	for i, l := range layers {
		c := layerColor(l.Color)
		x0 := i * tileSize
		for y := 0; y < tileSize; y++ {
			for x := x0; x < x0+tileSize; x++ {
				out.SetNRGBA(x, y, c)
			}
		}
	}
	return out
}

func layerColor(hex string) stdcolor.NRGBA {
	c, err := color.ParseHex(hex)
	if err != nil {
		return stdcolor.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
	return stdcolor.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
