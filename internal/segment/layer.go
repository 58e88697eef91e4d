// Package segment turns an image, or an object region within it, into a
// small set of color layers: binary masks covering perceptually coherent
// color areas, each tagged with its representative color and area share.
package segment

import (
	"fmt"
	"sort"

	"github.com/garmentlab/huesplit/internal/color"
	"github.com/garmentlab/huesplit/internal/mask"
)

// Layer is one color region of a segmentation result.
type Layer struct {
	// ID is a stable per-result identifier, "color-1" for the largest
	// layer onward.
	ID string
	// Mask marks the layer's pixels at the input image resolution.
	Mask *mask.Mask
	// Color is the layer's representative color as a #rrggbb hex string.
	Color string
	// AreaFrac is the layer's area divided by the reference area, the
	// object mask for splits and the whole image for layerings.
	AreaFrac float64
}

// rawLayer carries a layer through the pipeline before ordering.
type rawLayer struct {
	m        *mask.Mask
	centroid color.LAB
	area     int
}

// finalizeLayers orders raw layers by descending area and assigns the
// public ids. refArea is the denominator for AreaFrac.
func finalizeLayers(raw []rawLayer, refArea int) []Layer {
	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].area > raw[j].area
	})
	layers := make([]Layer, len(raw))
	for i, r := range raw {
		layers[i] = Layer{
			ID:       fmt.Sprintf("color-%d", i+1),
			Mask:     r.m,
			Color:    r.centroid.ToRGBA().Hex(),
			AreaFrac: float64(r.area) / float64(refArea),
		}
	}
	return layers
}
