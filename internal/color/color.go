// Package color provides the perceptual color primitives shared by the
// segmentation engine: 8-bit RGB, a scaled CIELAB encoding, and Delta-E.
package color

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBA represents a color with 8-bit RGBA components.
type RGBA struct {
	R, G, B, A uint8
}

// FromStdColor converts a standard library color to RGBA.
func FromStdColor(c color.Color) RGBA {
	r, g, b, a := c.RGBA()
	return RGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(a >> 8),
	}
}

// ToStdColor converts RGBA to a standard library color.
func (c RGBA) ToStdColor() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Hex formats the color as an uppercase display-RGB hex string like "#FFAA00".
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex parses a hex color string like "#000", "#000000", "#FF00FF".
func ParseHex(s string) (RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		_, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b)
		if err != nil {
			return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		r = r*16 + r
		g = g*16 + g
		b = b*16 + b
	case 6:
		_, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b)
		if err != nil {
			return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
	default:
		return RGBA{}, fmt.Errorf("invalid hex color %q: must be 3 or 6 hex digits", s)
	}
	return RGBA{R: r, G: g, B: b, A: 255}, nil
}

// LAB is a color in 8-bit-scaled CIELAB: L in [0,255], A and B in [0,255]
// with 128 as the neutral axis. All tuning constants in this module (grow
// tolerance, merge thresholds, variance floors) are expressed in these units.
type LAB struct {
	L, A, B float64
}

// ToLAB converts an RGBA color to scaled CIELAB.
func (c RGBA) ToLAB() LAB {
	l, a, b := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Lab()
	// go-colorful returns L* and a*/b* divided by 100; rescale so that
	// L spans [0,255] and the chroma axes are offset to 128.
	return LAB{
		L: l * 255.0,
		A: a*100.0 + 128.0,
		B: b*100.0 + 128.0,
	}
}

// ToRGBA converts a scaled-LAB color back to display RGB. Out-of-gamut
// values are clamped, so the round trip is approximate at the 8-bit
// quantization boundary, not exact.
func (p LAB) ToRGBA() RGBA {
	c := colorful.Lab(p.L/255.0, (p.A-128.0)/100.0, (p.B-128.0)/100.0).Clamped()
	r, g, b := c.RGB255()
	return RGBA{R: r, G: g, B: b, A: 255}
}

// DeltaE computes the perceptual distance between two colors: the Euclidean
// norm in scaled-LAB space (Delta-E 1976 up to the 8-bit scaling).
func DeltaE(a, b LAB) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// MeanLAB computes the unweighted mean of a set of LAB colors.
func MeanLAB(colors []LAB) LAB {
	if len(colors) == 0 {
		return LAB{}
	}
	var sl, sa, sb float64
	for _, c := range colors {
		sl += c.L
		sa += c.A
		sb += c.B
	}
	n := float64(len(colors))
	return LAB{L: sl / n, A: sa / n, B: sb / n}
}

// WeightedMeanLAB computes the weighted mean of a set of LAB colors.
// weights[i] corresponds to colors[i]. Zero total weight yields the zero LAB.
func WeightedMeanLAB(colors []LAB, weights []float64) LAB {
	var sl, sa, sb, sw float64
	for i, c := range colors {
		w := weights[i]
		sl += c.L * w
		sa += c.A * w
		sb += c.B * w
		sw += w
	}
	if sw == 0 {
		return LAB{}
	}
	return LAB{L: sl / sw, A: sa / sw, B: sb / sw}
}
