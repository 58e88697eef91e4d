// Package mask implements the binary pixel masks the segmentation engine
// operates on, together with their morphological cleanup operations.
package mask

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Mask is a 2D boolean grid. Bits is row-major: index = y*Width + x.
// A mask is always interpreted against an image or parent mask of exactly
// the same dimensions.
type Mask struct {
	Width, Height int
	Bits          []bool
}

// New returns an all-false mask of the given dimensions.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is set.
func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

// Set sets the pixel at (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Area returns the number of set pixels.
func (m *Mask) Area() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := New(m.Width, m.Height)
	copy(out.Bits, m.Bits)
	return out
}

// SameSize reports whether two masks have identical dimensions.
func (m *Mask) SameSize(o *Mask) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// MatchesImage reports whether the mask dimensions match the image bounds.
func (m *Mask) MatchesImage(img image.Image) bool {
	b := img.Bounds()
	return m.Width == b.Dx() && m.Height == b.Dy()
}

// Intersect returns the pixel-wise AND of two same-sized masks.
// Mismatched dimensions yield an all-false mask of m's size.
func (m *Mask) Intersect(o *Mask) *Mask {
	out := New(m.Width, m.Height)
	if !m.SameSize(o) {
		return out
	}
	for i, b := range m.Bits {
		out.Bits[i] = b && o.Bits[i]
	}
	return out
}

// Union returns the pixel-wise OR of two same-sized masks.
// Mismatched dimensions yield a copy of m.
func (m *Mask) Union(o *Mask) *Mask {
	out := m.Clone()
	if !m.SameSize(o) {
		return out
	}
	for i, b := range o.Bits {
		if b {
			out.Bits[i] = true
		}
	}
	return out
}

// FromGray converts a grayscale image into a mask using the bilevel
// threshold: luminance >= 128 is foreground.
func FromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= 128 {
				m.Bits[y*m.Width+x] = true
			}
		}
	}
	return m
}

// ToGray renders the mask as a grayscale image: 255 foreground, 0 background.
func (m *Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return g
}

// Resized returns the mask resampled to the given dimensions using
// nearest-neighbor interpolation, which preserves the binary nature of the
// mask (no intermediate gray values).
func (m *Mask) Resized(width, height int) *Mask {
	if width == m.Width && height == m.Height {
		return m.Clone()
	}
	if width <= 0 || height <= 0 {
		return New(width, height)
	}
	resized := imaging.Resize(m.ToGray(), width, height, imaging.NearestNeighbor)
	out := New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if resized.NRGBAAt(x, y).R >= 128 {
				out.Bits[y*width+x] = true
			}
		}
	}
	return out
}
