package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/garmentlab/huesplit/internal/mask"
)

const dataURLPrefix = "data:image"

// DecodeImageDataURL decodes a base64 image data URL ("data:image/...;base64,")
// into an image.
func DecodeImageDataURL(dataURL string) (image.Image, error) {
	raw, err := dataURLPayload(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding data URL image: %w", err)
	}
	return img, nil
}

// DecodeMaskDataURL decodes a data URL into a binary mask of the given
// dimensions. The encoded image is read as luminance, resized with
// nearest-neighbor resampling when its dimensions differ, and thresholded
// at 128.
func DecodeMaskDataURL(dataURL string, width, height int) (*mask.Mask, error) {
	raw, err := dataURLPayload(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding data URL mask: %w", err)
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return mask.FromGray(gray).Resized(width, height), nil
}

// EncodeMaskPNG renders a mask as a PNG data URL. blur > 0 applies a
// Gaussian blur so mask edges feather in the editor; the sigma follows the
// conventional 0.3*(radius-1)+0.8 mapping for a (2*blur+1)-sized kernel.
func EncodeMaskPNG(m *mask.Mask, blur int) (string, error) {
	var img image.Image = m.ToGray()
	if blur > 0 {
		img = imaging.Blur(img, blurSigma(blur))
	}
	return encodePNGDataURL(img)
}

// EncodeCutoutPNG renders the image with the mask as its alpha channel:
// the garment cutout the editor overlays. blur feathers the alpha edge.
func EncodeCutoutPNG(img image.Image, m *mask.Mask, blur int) (string, error) {
	return encodePNGDataURL(Cutout(img, m, blur))
}

// Cutout returns the image with the mask as its alpha channel. blur > 0
// feathers the alpha edge.
func Cutout(img image.Image, m *mask.Mask, blur int) *image.NRGBA {
	var alpha image.Image = m.ToGray()
	if blur > 0 {
		alpha = imaging.Blur(alpha, blurSigma(blur))
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	ab := alpha.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			var a uint8
			if x < ab.Dx() && y < ab.Dy() {
				ar, _, _, _ := alpha.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
				a = uint8(ar >> 8)
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(bl >> 8),
				A: a,
			})
		}
	}
	return out
}

// EncodeImagePNG renders any image as a PNG data URL.
func EncodeImagePNG(img image.Image) (string, error) {
	return encodePNGDataURL(img)
}

func blurSigma(blur int) float64 {
	sigma := 0.3*float64(blur-1) + 0.8
	if sigma < 0.5 {
		sigma = 0.5
	}
	return sigma
}

func encodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func dataURLPayload(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, fmt.Errorf("expected a data URL, got %q prefix", truncate(dataURL, 16))
	}
	_, encoded, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, fmt.Errorf("malformed data URL: missing payload separator")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding data URL payload: %w", err)
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
