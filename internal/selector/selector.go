// Package selector picks the best externally proposed object mask for a
// click point, wrapping the neural segmentation model behind an explicit
// capability value so its availability is never hidden global state.
package selector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/garmentlab/huesplit/internal/mask"
)

var (
	// ErrModelUnavailable means the external segmentation model is absent or
	// failed; callers fall back to region growing.
	ErrModelUnavailable = errors.New("segmentation model unavailable")
	// ErrNoCandidate means the model ran but produced no acceptable mask for
	// the point; callers fall back to region growing.
	ErrNoCandidate = errors.New("no acceptable candidate mask")
)

// Generator is the external neural segmentation model, treated as a black
// box that proposes candidate object masks for an image. Implementations
// must be safe for concurrent calls or be serialized by the caller.
type Generator interface {
	Generate(ctx context.Context, img image.Image) ([]*mask.Mask, error)
}

// Model is the capability handed to the engine: either Unavailable or
// Available with a Generator and a device label. The zero value is
// Unavailable.
type Model struct {
	gen    Generator
	device string
}

// Unavailable returns the absent-model capability.
func Unavailable() Model {
	return Model{}
}

// WithGenerator returns an available model capability backed by gen,
// running on the described device (e.g. "cpu", "cuda").
func WithGenerator(gen Generator, device string) Model {
	return Model{gen: gen, device: device}
}

// Available reports whether a generator is present.
func (m Model) Available() bool {
	return m.gen != nil
}

// Device returns the device label, or "cpu" when no model is loaded.
func (m Model) Device() string {
	if m.device == "" {
		return "cpu"
	}
	return m.device
}

// Generate proposes candidate masks for the image, or ErrModelUnavailable
// when no model is loaded or the model fails.
func (m Model) Generate(ctx context.Context, img image.Image) ([]*mask.Mask, error) {
	if !m.Available() {
		return nil, ErrModelUnavailable
	}
	masks, err := m.gen.Generate(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return masks, nil
}

// SelectContaining returns the best candidate mask containing the
// normalized point (x, y): among candidates that match the image
// dimensions, contain the point, and cover at least minAreaRatio of the
// image, it picks the smallest by area — the smallest mask around a click
// is most likely the intended object rather than a background or union
// region. Model failures surface as ErrModelUnavailable and an empty
// shortlist as ErrNoCandidate; both are recoverable and callers fall back
// to region growing.
func SelectContaining(ctx context.Context, m Model, img image.Image, x, y, minAreaRatio float64) (*mask.Mask, error) {
	candidates, err := m.Generate(ctx, img)
	if err != nil {
		return nil, err
	}
	return SelectFromCandidates(candidates, img, x, y, minAreaRatio)
}

// SelectFromCandidates applies the selection heuristic to an existing
// candidate set.
func SelectFromCandidates(candidates []*mask.Mask, img image.Image, x, y, minAreaRatio float64) (*mask.Mask, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || len(candidates) == 0 {
		return nil, ErrNoCandidate
	}

	px := clampScale(x, w)
	py := clampScale(y, h)
	minArea := int(float64(w*h) * minAreaRatio)

	type scored struct {
		area int
		m    *mask.Mask
	}
	var qualified []scored
	for _, c := range candidates {
		if c == nil || c.Width != w || c.Height != h {
			continue
		}
		if !c.At(px, py) {
			continue
		}
		area := c.Area()
		if area < minArea {
			continue
		}
		qualified = append(qualified, scored{area: area, m: c})
	}
	if len(qualified) == 0 {
		return nil, ErrNoCandidate
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].area < qualified[j].area
	})
	return qualified[0].m, nil
}

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
