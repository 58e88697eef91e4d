// Package huesplit segments photos of garments (or any colored object)
// into color layers: binary masks covering perceptually coherent color
// regions, each with a representative color and area share.
//
// Usage as a library:
//
//	img, _ := huesplit.LoadImage("shirt.png")
//	obj, _, _ := huesplit.ObjectFromPoint(ctx, huesplit.NoModel(), img, 0.5, 0.5)
//	layers, _ := huesplit.SplitObjectColors(ctx, img, obj, huesplit.DefaultSplitOptions())
//
// A neural mask generator can be plugged in through WithMaskGenerator;
// without one, every operation degrades to the built-in pixel paths.
package huesplit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sort"

	"github.com/garmentlab/huesplit/internal/cluster"
	"github.com/garmentlab/huesplit/internal/color"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
	"github.com/garmentlab/huesplit/internal/palette"
	"github.com/garmentlab/huesplit/internal/region"
	"github.com/garmentlab/huesplit/internal/segment"
	"github.com/garmentlab/huesplit/internal/selector"
)

// Error kinds returned by the segmentation operations. Use errors.Is.
var (
	// ErrInvalidInput marks malformed or mismatched arguments.
	ErrInvalidInput = segment.ErrInvalidInput
	// ErrEmptyMask marks an object mask with nothing left after cleaning.
	ErrEmptyMask = segment.ErrEmptyMask
	// ErrInsufficientPixels marks a region too small to cluster.
	ErrInsufficientPixels = segment.ErrInsufficientPixels
	// ErrModelUnavailable marks an absent or failing mask generator.
	ErrModelUnavailable = selector.ErrModelUnavailable
	// ErrSegmentationFailed marks a point for which no object could be
	// segmented by any strategy.
	ErrSegmentationFailed = errors.New("segmentation failed")
)

// minCandidateAreaRatio filters out speck candidate masks around a click.
const minCandidateAreaRatio = 0.01

// Layer is one color region of a segmentation result. Masks are 8-bit
// grayscale, 255 inside the layer and 0 outside, at the input image size.
type Layer struct {
	// ID is "color-1" for the largest layer onward.
	ID string
	// Mask marks the layer's pixels.
	Mask *image.Gray
	// Color is the representative color as a #rrggbb hex string.
	Color string
	// AreaFrac is the layer area over the reference area (the object for
	// splits, the image for layerings).
	AreaFrac float64
}

// MaskGenerator is a pluggable neural segmentation model proposing
// candidate object masks for an image.
type MaskGenerator interface {
	Generate(ctx context.Context, img image.Image) ([]*image.Gray, error)
}

// Model is the optional mask generator capability. The zero value and
// NoModel() mean the pixel-only paths are used everywhere.
type Model struct {
	inner selector.Model
}

// NoModel returns the absent-model capability.
func NoModel() Model {
	return Model{inner: selector.Unavailable()}
}

// WithMaskGenerator returns a model capability backed by gen, running on
// the described device (e.g. "cpu", "cuda").
func WithMaskGenerator(gen MaskGenerator, device string) Model {
	return Model{inner: selector.WithGenerator(&generatorAdapter{gen: gen}, device)}
}

// Available reports whether a mask generator is present.
func (m Model) Available() bool { return m.inner.Available() }

// Device returns the model's device label, "cpu" when absent.
func (m Model) Device() string { return m.inner.Device() }

// GenerateMasks proposes candidate object masks for the image, or
// ErrModelUnavailable when no generator is plugged in.
func (m Model) GenerateMasks(ctx context.Context, img image.Image) ([]*image.Gray, error) {
	masks, err := m.inner.Generate(ctx, img)
	if err != nil {
		return nil, err
	}
	grays := make([]*image.Gray, len(masks))
	for i, mm := range masks {
		grays[i] = mm.ToGray()
	}
	return grays, nil
}

// generatorAdapter bridges the public gray-image interface to the
// internal mask type.
type generatorAdapter struct {
	gen MaskGenerator
}

func (a *generatorAdapter) Generate(ctx context.Context, img image.Image) ([]*mask.Mask, error) {
	grays, err := a.gen.Generate(ctx, img)
	if err != nil {
		return nil, err
	}
	masks := make([]*mask.Mask, 0, len(grays))
	for _, g := range grays {
		if g == nil {
			continue
		}
		masks = append(masks, mask.FromGray(g))
	}
	return masks, nil
}

// SplitOptions configures SplitObjectColors.
type SplitOptions struct {
	// MaxColors caps the cluster count searched (2..10). Default: 6.
	MaxColors int
	// MinAreaRatio drops layers under this share of the object area
	// (0..0.5). Default: 0.02.
	MinAreaRatio float64
	// Seed drives sampling and clustering; identical inputs and seed
	// yield identical layers. Default: 42.
	Seed int64
}

// DefaultSplitOptions returns SplitOptions with sensible defaults.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{MaxColors: 6, MinAreaRatio: 0.02, Seed: 42}
}

// LayerOptions configures whole-image layering.
type LayerOptions struct {
	// NumLayers is the layer count for the fixed-count paths (2..8).
	// Default: 4.
	NumLayers int
	// MaxColors caps the dynamic cluster count search (2..10).
	// Default: 10.
	MaxColors int
	// MinAreaRatio drops layers under this share of the image area
	// (0..0.5). Default: 0.01.
	MinAreaRatio float64
	// MergeThreshold is the perceptual distance under which clusters
	// collapse into one layer. Default: 10.
	MergeThreshold float64
	// Seed drives sampling and clustering. Default: 42.
	Seed int64
}

// DefaultLayerOptions returns LayerOptions with sensible defaults.
func DefaultLayerOptions() LayerOptions {
	return LayerOptions{
		NumLayers:      4,
		MaxColors:      10,
		MinAreaRatio:   0.01,
		MergeThreshold: 10,
		Seed:           42,
	}
}

// LoadImage reads an image from disk. Supports PNG, JPEG, GIF, and WEBP.
func LoadImage(path string) (image.Image, error) {
	return imaging.Load(path)
}

// SavePNG writes an image to disk as PNG.
func SavePNG(path string, img image.Image) error {
	return imaging.SavePNG(path, img)
}

// GrowRegion flood-fills a perceptually similar region around the
// normalized point (x, y) and returns its cleaned mask.
func GrowRegion(ctx context.Context, img image.Image, x, y float64) (*image.Gray, error) {
	if err := validatePoint(img, x, y); err != nil {
		return nil, err
	}
	m, err := region.Grow(ctx, img, x, y)
	if err != nil {
		return nil, err
	}
	return m.ToGray(), nil
}

// ObjectFromPoint segments the object under the normalized point (x, y).
// With an available model it picks the smallest candidate mask containing
// the point; otherwise, or when the model yields nothing usable, it falls
// back to region growing. The bool reports whether the model's mask was
// used.
func ObjectFromPoint(ctx context.Context, m Model, img image.Image, x, y float64) (*image.Gray, bool, error) {
	if err := validatePoint(img, x, y); err != nil {
		return nil, false, err
	}

	sel, err := selector.SelectContaining(ctx, m.inner, img, x, y, minCandidateAreaRatio)
	if err == nil {
		return sel.ToGray(), true, nil
	}
	if !errors.Is(err, selector.ErrModelUnavailable) && !errors.Is(err, selector.ErrNoCandidate) {
		return nil, false, err
	}

	grown, err := region.Grow(ctx, img, x, y)
	if err != nil {
		return nil, false, err
	}
	if grown.Area() == 0 {
		return nil, false, fmt.Errorf("%w: no coherent region at point", ErrSegmentationFailed)
	}
	return grown.ToGray(), false, nil
}

// SplitObjectColors partitions the masked object into layers of distinct
// colors. Every returned layer mask is a subset of the cleaned object
// mask.
func SplitObjectColors(ctx context.Context, img image.Image, objMask *image.Gray, opts SplitOptions) ([]Layer, error) {
	if objMask == nil {
		return nil, ErrInvalidInput
	}
	layers, err := segment.SplitObjectColors(ctx, img, mask.FromGray(objMask), segment.SplitOptions{
		MaxColors:    opts.MaxColors,
		MinAreaRatio: opts.MinAreaRatio,
		Seed:         opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	return publicLayers(layers), nil
}

// LayerImageColors segments the whole image into color layers with a
// dynamically chosen layer count.
func LayerImageColors(ctx context.Context, img image.Image, opts LayerOptions) ([]Layer, error) {
	layers, err := segment.LayerImageColors(ctx, img, toSegmentLayerOptions(opts))
	if err != nil {
		return nil, err
	}
	return publicLayers(layers), nil
}

// LayerImageFixedK segments the whole image into opts.NumLayers color
// layers (clamped to 2..8), with no merging or background suppression.
func LayerImageFixedK(ctx context.Context, img image.Image, opts LayerOptions) ([]Layer, error) {
	layers, err := segment.LayerImageFixedK(ctx, img, opts.NumLayers, toSegmentLayerOptions(opts))
	if err != nil {
		return nil, err
	}
	return publicLayers(layers), nil
}

// ColorLayers builds whole-image color layers, preferring the model's
// candidate masks when at least two usable ones come back: candidates are
// grouped into NumLayers clusters by mean color and unioned. Otherwise
// the image is layered by fixed-count pixel clustering. The bool reports
// whether candidate masks were used.
func ColorLayers(ctx context.Context, m Model, img image.Image, opts LayerOptions) ([]Layer, bool, error) {
	if img == nil {
		return nil, false, ErrInvalidInput
	}

	if m.Available() {
		if cands, err := m.inner.Generate(ctx, img); err == nil {
			if layers, ok := layersFromCandidates(img, cands, opts); ok {
				return layers, true, nil
			}
		}
	}

	layers, err := LayerImageFixedK(ctx, img, opts)
	if err != nil {
		return nil, false, err
	}
	return layers, false, nil
}

// PaletteColors extracts up to k representative colors as hex strings.
// method is "dominant" or "kmeans".
func PaletteColors(img image.Image, k int, method string) []string {
	cols := palette.Extract(img, k, palette.ParseMethod(method))
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Hex()
	}
	return out
}

// layersFromCandidates groups candidate masks by their mean color into at
// most NumLayers layers. It reports false when fewer than two usable
// candidates exist, letting the caller fall back to pixel clustering.
func layersFromCandidates(img image.Image, cands []*mask.Mask, opts LayerOptions) ([]Layer, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	imgArea := w * h
	if imgArea == 0 {
		return nil, false
	}
	minArea := int(opts.MinAreaRatio * float64(imgArea))

	var usable []*mask.Mask
	for _, c := range cands {
		if c == nil || c.Width != w || c.Height != h {
			continue
		}
		if c.Area() < minArea {
			continue
		}
		usable = append(usable, c)
	}
	if len(usable) < 2 {
		return nil, false
	}

	_, _, buf := color.LABBuffer(img)
	means := make([]color.LAB, len(usable))
	weights := make([]float64, len(usable))
	for i, c := range usable {
		var members []color.LAB
		for j, on := range c.Bits {
			if on {
				members = append(members, buf[j])
			}
		}
		means[i] = color.MeanLAB(members)
		weights[i] = float64(len(members))
	}

	n := opts.NumLayers
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	if n > len(usable) {
		n = len(usable)
	}
	model := cluster.KMeans(means, n, rand.New(rand.NewSource(opts.Seed)))

	type group struct {
		m      *mask.Mask
		labs   []color.LAB
		ws     []float64
		filled bool
	}
	groups := make([]group, len(model.Centroids))
	for i, c := range usable {
		g := model.Assign(means[i])
		if !groups[g].filled {
			groups[g].m = c.Clone()
			groups[g].filled = true
		} else {
			groups[g].m = groups[g].m.Union(c)
		}
		groups[g].labs = append(groups[g].labs, means[i])
		groups[g].ws = append(groups[g].ws, weights[i])
	}

	var layers []Layer
	for _, g := range groups {
		if !g.filled {
			continue
		}
		area := g.m.Area()
		layers = append(layers, Layer{
			Mask:     g.m.ToGray(),
			Color:    color.WeightedMeanLAB(g.labs, g.ws).ToRGBA().Hex(),
			AreaFrac: float64(area) / float64(imgArea),
		})
	}
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].AreaFrac > layers[j].AreaFrac
	})
	for i := range layers {
		layers[i].ID = fmt.Sprintf("color-%d", i+1)
	}
	return layers, len(layers) > 0
}

func toSegmentLayerOptions(opts LayerOptions) segment.LayerOptions {
	return segment.LayerOptions{
		MaxColors:      opts.MaxColors,
		MinAreaRatio:   opts.MinAreaRatio,
		MergeThreshold: opts.MergeThreshold,
		Seed:           opts.Seed,
	}
}

func publicLayers(layers []segment.Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{
			ID:       l.ID,
			Mask:     l.Mask.ToGray(),
			Color:    l.Color,
			AreaFrac: l.AreaFrac,
		}
	}
	return out
}

func validatePoint(img image.Image, x, y float64) error {
	if img == nil {
		return ErrInvalidInput
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ErrInvalidInput
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("%w: point (%g, %g) outside [0,1]", ErrInvalidInput, x, y)
	}
	return nil
}
