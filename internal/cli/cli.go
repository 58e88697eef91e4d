package cli

import (
	"flag"
	"fmt"
	"os"
)

// Mode constants for the CLI.
const (
	ModeLayers = "layers" // Segment the whole image into color layers.
	ModeSplit  = "split"  // Split the colors inside an object mask.
	ModePoint  = "point"  // Segment the object under a click point.
)

// Config holds the parsed CLI arguments.
type Config struct {
	InPath       string
	OutDir       string
	Mode         string
	MaskPath     string
	X, Y         float64
	MaxColors    int
	NumLayers    int
	MinAreaRatio float64
	Seed         int64
	Cutouts      bool
	FixedLayers  bool
}

// Parse parses CLI arguments and returns a validated Config.
func Parse() (Config, error) {
	inPath := flag.String("in", "", "Path to input image (required, supports PNG, JPEG, GIF, WEBP)")
	outDir := flag.String("out-dir", "", "Directory for generated layer images (required)")
	mode := flag.String("mode", ModeLayers, "Operation: layers, split, or point")
	maskPath := flag.String("mask", "", "Path to a grayscale object mask PNG (split mode; omit to derive from --x/--y)")
	x := flag.Float64("x", -1, "Normalized click X in [0,1] (point mode, or split mode without --mask)")
	y := flag.Float64("y", -1, "Normalized click Y in [0,1] (point mode, or split mode without --mask)")
	maxColors := flag.Int("max-colors", 6, "Maximum distinct colors when splitting an object (2-10)")
	numLayers := flag.Int("num-layers", 4, "Layer count for fixed-count layering (2-8)")
	minAreaRatio := flag.Float64("min-area-ratio", 0.02, "Drop layers under this area share (0-0.5)")
	seed := flag.Int64("seed", 42, "Random seed; identical inputs and seed give identical layers")
	cutouts := flag.Bool("cutouts", true, "Also save RGBA cutouts next to the layer masks")
	fixedLayers := flag.Bool("fixed-layers", false, "Use exactly --num-layers layers instead of picking the count automatically (layers mode)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: huesplit [options]\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n"+
			"  huesplit --in=shirt.png --out-dir=layers --mode=layers\n"+
			"  huesplit --in=shirt.png --out-dir=layers --mode=split --x=0.5 --y=0.4\n"+
			"  huesplit --in=shirt.png --out-dir=layers --mode=point --x=0.5 --y=0.4\n")
	}

	flag.Parse()

	if *inPath == "" {
		return Config{}, fmt.Errorf("--in is required")
	}
	if *outDir == "" {
		return Config{}, fmt.Errorf("--out-dir is required")
	}
	switch *mode {
	case ModeLayers, ModeSplit, ModePoint:
	default:
		return Config{}, fmt.Errorf("--mode must be %s, %s, or %s, got %q", ModeLayers, ModeSplit, ModePoint, *mode)
	}
	needsPoint := *mode == ModePoint || (*mode == ModeSplit && *maskPath == "")
	if needsPoint {
		if *x < 0 || *x > 1 || *y < 0 || *y > 1 {
			return Config{}, fmt.Errorf("--x and --y must be in [0,1] for mode %q", *mode)
		}
	}
	if *maxColors < 2 || *maxColors > 10 {
		return Config{}, fmt.Errorf("--max-colors must be between 2 and 10, got %d", *maxColors)
	}
	if *numLayers < 2 || *numLayers > 8 {
		return Config{}, fmt.Errorf("--num-layers must be between 2 and 8, got %d", *numLayers)
	}
	if *minAreaRatio < 0 || *minAreaRatio > 0.5 {
		return Config{}, fmt.Errorf("--min-area-ratio must be between 0 and 0.5, got %f", *minAreaRatio)
	}

	return Config{
		InPath:       *inPath,
		OutDir:       *outDir,
		Mode:         *mode,
		MaskPath:     *maskPath,
		X:            *x,
		Y:            *y,
		MaxColors:    *maxColors,
		NumLayers:    *numLayers,
		MinAreaRatio: *minAreaRatio,
		Seed:         *seed,
		Cutouts:      *cutouts,
		FixedLayers:  *fixedLayers,
	}, nil
}
