package segment

import "errors"

var (
	// ErrInvalidInput means the image or mask arguments are malformed or
	// mismatched.
	ErrInvalidInput = errors.New("invalid segmentation input")
	// ErrEmptyMask means the object mask has no pixels left after cleaning.
	ErrEmptyMask = errors.New("object mask is empty")
	// ErrInsufficientPixels means the region is too small to cluster.
	ErrInsufficientPixels = errors.New("not enough pixels to split colors")
)
