// Package pipeline runs the CLI workflows end to end: load an image,
// segment it according to the selected mode, and save the resulting layer
// masks (and cutouts) as PNG files.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/garmentlab/huesplit"
	"github.com/garmentlab/huesplit/internal/cli"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
	"github.com/garmentlab/huesplit/internal/preview"
)

// Run executes the full huesplit pipeline with the given configuration.
func Run(ctx context.Context, cfg cli.Config) error {
	// Step 1: Load input image
	fmt.Printf("Loading image: %s\n", cfg.InPath)
	img, err := imaging.Load(imaging.ExpandPath(cfg.InPath))
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	fmt.Printf("Image loaded: %dx%d\n", img.Bounds().Dx(), img.Bounds().Dy())

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	switch cfg.Mode {
	case cli.ModePoint:
		return runPoint(ctx, cfg, img)
	case cli.ModeSplit:
		return runSplit(ctx, cfg, img)
	default:
		return runLayers(ctx, cfg, img)
	}
}

// runPoint segments the object under the click point and saves its mask.
func runPoint(ctx context.Context, cfg cli.Config, img image.Image) error {
	fmt.Printf("Segmenting object at (%.3f, %.3f)...\n", cfg.X, cfg.Y)
	obj, usedModel, err := huesplit.ObjectFromPoint(ctx, huesplit.NoModel(), img, cfg.X, cfg.Y)
	if err != nil {
		return fmt.Errorf("segmenting object: %w", err)
	}
	fmt.Printf("Object mask found (model used: %v)\n", usedModel)

	outPath := filepath.Join(cfg.OutDir, "object-mask.png")
	fmt.Printf("Saving object mask: %s\n", outPath)
	if err := imaging.SavePNG(outPath, obj); err != nil {
		return fmt.Errorf("saving object mask: %w", err)
	}

	fmt.Println("Done!")
	return nil
}

// runSplit splits the colors inside an object mask, taken from a file or
// derived from the click point.
func runSplit(ctx context.Context, cfg cli.Config, img image.Image) error {
	obj, err := objectMask(ctx, cfg, img)
	if err != nil {
		return err
	}

	fmt.Printf("Splitting object colors (max %d)...\n", cfg.MaxColors)
	layers, err := huesplit.SplitObjectColors(ctx, img, obj, huesplit.SplitOptions{
		MaxColors:    cfg.MaxColors,
		MinAreaRatio: cfg.MinAreaRatio,
		Seed:         cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("splitting colors: %w", err)
	}
	fmt.Printf("Color layers found: %d\n", len(layers))

	return saveLayers(cfg, img, layers)
}

// runLayers segments the whole image into color layers.
func runLayers(ctx context.Context, cfg cli.Config, img image.Image) error {
	opts := huesplit.DefaultLayerOptions()
	opts.NumLayers = cfg.NumLayers
	opts.MinAreaRatio = cfg.MinAreaRatio
	opts.Seed = cfg.Seed

	var layers []huesplit.Layer
	var err error
	if cfg.FixedLayers {
		fmt.Printf("Layering image into %d colors...\n", cfg.NumLayers)
		layers, err = huesplit.LayerImageFixedK(ctx, img, opts)
	} else {
		fmt.Println("Layering image colors...")
		layers, err = huesplit.LayerImageColors(ctx, img, opts)
	}
	if err != nil {
		return fmt.Errorf("layering image: %w", err)
	}
	fmt.Printf("Color layers found: %d\n", len(layers))

	return saveLayers(cfg, img, layers)
}

func objectMask(ctx context.Context, cfg cli.Config, img image.Image) (*image.Gray, error) {
	if cfg.MaskPath != "" {
		fmt.Printf("Loading object mask: %s\n", cfg.MaskPath)
		raw, err := imaging.Load(imaging.ExpandPath(cfg.MaskPath))
		if err != nil {
			return nil, fmt.Errorf("loading object mask: %w", err)
		}
		b := img.Bounds()
		rb := raw.Bounds()
		gray := image.NewGray(image.Rect(0, 0, rb.Dx(), rb.Dy()))
		for y := 0; y < rb.Dy(); y++ {
			for x := 0; x < rb.Dx(); x++ {
				gray.Set(x, y, raw.At(rb.Min.X+x, rb.Min.Y+y))
			}
		}
		return mask.FromGray(gray).Resized(b.Dx(), b.Dy()).ToGray(), nil
	}

	fmt.Printf("Deriving object mask from (%.3f, %.3f)...\n", cfg.X, cfg.Y)
	obj, _, err := huesplit.ObjectFromPoint(ctx, huesplit.NoModel(), img, cfg.X, cfg.Y)
	if err != nil {
		return nil, fmt.Errorf("segmenting object: %w", err)
	}
	return obj, nil
}

func saveLayers(cfg cli.Config, img image.Image, layers []huesplit.Layer) error {
	for _, l := range layers {
		maskPath := filepath.Join(cfg.OutDir, l.ID+".png")
		fmt.Printf("Saving %s (%s, %.1f%% area): %s\n", l.ID, l.Color, l.AreaFrac*100, maskPath)
		if err := imaging.SavePNG(maskPath, l.Mask); err != nil {
			return fmt.Errorf("saving layer mask: %w", err)
		}
		if cfg.Cutouts {
			cutoutPath := filepath.Join(cfg.OutDir, l.ID+"-cutout.png")
			cutout := imaging.Cutout(img, mask.FromGray(l.Mask), 0)
			if err := imaging.SavePNG(cutoutPath, cutout); err != nil {
				return fmt.Errorf("saving layer cutout: %w", err)
			}
		}
	}

	if err := savePreviews(cfg, img, layers); err != nil {
		return err
	}

	fmt.Println("Done!")
	return nil
}

// savePreviews writes the flat recolored composite and the palette strip.
// Layers arrive largest first, so smaller layers paint over larger ones.
func savePreviews(cfg cli.Config, img image.Image, layers []huesplit.Layer) error {
	pl := make([]preview.Layer, len(layers))
	for i, l := range layers {
		pl[i] = preview.Layer{Mask: l.Mask, Color: l.Color}
	}
	b := img.Bounds()

	previewPath := filepath.Join(cfg.OutDir, "preview.png")
	fmt.Printf("Saving preview: %s\n", previewPath)
	if err := imaging.SavePNG(previewPath, preview.Compose(b.Dx(), b.Dy(), pl)); err != nil {
		return fmt.Errorf("saving preview: %w", err)
	}

	palettePath := filepath.Join(cfg.OutDir, "palette.png")
	fmt.Printf("Saving palette strip: %s\n", palettePath)
	if err := imaging.SavePNG(palettePath, preview.Strip(pl, 0)); err != nil {
		return fmt.Errorf("saving palette strip: %w", err)
	}
	return nil
}
