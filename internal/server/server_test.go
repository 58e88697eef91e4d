package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	stdcolor "image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garmentlab/huesplit"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
)

func testImageDataURL(t *testing.T, w, h int, left, right stdcolor.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, left)
			} else {
				img.SetNRGBA(x, y, right)
			}
		}
	}
	url, err := imaging.EncodeImagePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return url
}

func fullMaskDataURL(t *testing.T, w, h int) string {
	t.Helper()
	m := mask.New(w, h)
	for i := range m.Bits {
		m.Bits[i] = true
	}
	url, err := imaging.EncodeMaskPNG(m, 0)
	if err != nil {
		t.Fatal(err)
	}
	return url
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response: %v (body %s)", err, rec.Body.String())
	}
}

var (
	redC  = stdcolor.NRGBA{R: 255, A: 255}
	blueC = stdcolor.NRGBA{B: 255, A: 255}
)

func TestHealth(t *testing.T) {
	t.Run("without model", func(t *testing.T) {
		s := New(huesplit.NoModel(), nil)
		rec := doJSON(t, s, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp map[string]any
		decodeBody(t, rec, &resp)
		if resp["ok"] != true || resp["mode"] != "kmeans" {
			t.Errorf("unexpected health body: %v", resp)
		}
		if resp["warning"] == nil {
			t.Error("expected a fallback warning")
		}
	})

	t.Run("with model", func(t *testing.T) {
		m := huesplit.WithMaskGenerator(stubGen{}, "cuda")
		s := New(m, nil)
		rec := doJSON(t, s, http.MethodGet, "/health", nil)
		var resp map[string]any
		decodeBody(t, rec, &resp)
		if resp["mode"] != "model" || resp["device"] != "cuda" {
			t.Errorf("unexpected health body: %v", resp)
		}
	})
}

type stubGen struct {
	masks []*image.Gray
}

func (s stubGen) Generate(ctx context.Context, img image.Image) ([]*image.Gray, error) {
	return s.masks, nil
}

func TestAutoRequiresModel(t *testing.T) {
	s := New(huesplit.NoModel(), nil)
	rec := doJSON(t, s, http.MethodPost, "/segment/auto", map[string]any{
		"imageDataUrl": testImageDataURL(t, 20, 20, redC, blueC),
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAutoReturnsMasks(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	s := New(huesplit.WithMaskGenerator(stubGen{masks: []*image.Gray{g}}, "cpu"), nil)

	rec := doJSON(t, s, http.MethodPost, "/segment/auto", map[string]any{
		"imageDataUrl": testImageDataURL(t, 20, 20, redC, blueC),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Masks []string `json:"masks"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Masks) != 1 || !strings.HasPrefix(resp.Masks[0], "data:image/png;base64,") {
		t.Errorf("unexpected masks: %v", resp.Masks)
	}
}

func TestObjectFromPoint(t *testing.T) {
	s := New(huesplit.NoModel(), nil)
	imgURL := testImageDataURL(t, 60, 60, redC, redC)

	t.Run("ok", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/object-from-point", map[string]any{
			"imageDataUrl": imgURL,
			"x":            0.5,
			"y":            0.5,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
		}
		var resp map[string]any
		decodeBody(t, rec, &resp)
		url, _ := resp["objectMaskDataUrl"].(string)
		if resp["ok"] != true || !strings.HasPrefix(url, "data:image/png;base64,") {
			t.Errorf("unexpected body: %v", resp)
		}
	})

	t.Run("missing coordinates", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/object-from-point", map[string]any{
			"imageDataUrl": imgURL,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("point out of range", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/object-from-point", map[string]any{
			"imageDataUrl": imgURL,
			"x":            1.5,
			"y":            0.5,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestColorLayers(t *testing.T) {
	s := New(huesplit.NoModel(), nil)
	imgURL := testImageDataURL(t, 64, 64, redC, blueC)

	t.Run("ok", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/color-layers", map[string]any{
			"imageDataUrl": imgURL,
			"num_layers":   4,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
		}
		var resp struct {
			Width  int             `json:"width"`
			Height int             `json:"height"`
			Layers []layerResponse `json:"layers"`
			Model  modelStatus     `json:"model"`
		}
		decodeBody(t, rec, &resp)
		if resp.Width != 64 || resp.Height != 64 {
			t.Errorf("dimensions = %dx%d", resp.Width, resp.Height)
		}
		if len(resp.Layers) != 2 {
			t.Fatalf("got %d layers, want 2", len(resp.Layers))
		}
		if resp.Model.Used || resp.Model.Mode != "kmeans" {
			t.Errorf("model status = %+v", resp.Model)
		}
		for _, l := range resp.Layers {
			if l.MaskPNG == "" || l.CutoutPNG == "" || l.SuggestedColor == "" {
				t.Errorf("incomplete layer %+v", l)
			}
		}
	})

	t.Run("num_layers out of range", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/color-layers", map[string]any{
			"imageDataUrl": imgURL,
			"num_layers":   1,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("bad image payload", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/color-layers", map[string]any{
			"imageDataUrl": "data:image/png;base64,not-base64",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestSplitColorsInMask(t *testing.T) {
	s := New(huesplit.NoModel(), nil)
	imgURL := testImageDataURL(t, 64, 64, redC, blueC)
	maskURL := fullMaskDataURL(t, 64, 64)

	t.Run("ok", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/split-colors-in-mask", map[string]any{
			"imageDataUrl":      imgURL,
			"objectMaskDataUrl": maskURL,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
		}
		var resp struct {
			OK     bool                 `json:"ok"`
			Layers []splitLayerResponse `json:"layers"`
		}
		decodeBody(t, rec, &resp)
		if !resp.OK || len(resp.Layers) != 2 {
			t.Fatalf("ok=%v layers=%d, want ok with 2 layers", resp.OK, len(resp.Layers))
		}
		for _, l := range resp.Layers {
			if l.AreaPct < 0.4 || l.AreaPct > 0.6 {
				t.Errorf("layer %s areaPct = %f, want ~0.5", l.ID, l.AreaPct)
			}
		}
	})

	t.Run("max_colors out of range", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/segment/split-colors-in-mask", map[string]any{
			"imageDataUrl":      imgURL,
			"objectMaskDataUrl": maskURL,
			"max_colors":        99,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPalette(t *testing.T) {
	s := New(huesplit.NoModel(), nil)
	rec := doJSON(t, s, http.MethodPost, "/segment/palette", map[string]any{
		"imageDataUrl": testImageDataURL(t, 64, 64, redC, blueC),
		"count":        2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK     bool     `json:"ok"`
		Colors []string `json:"colors"`
	}
	decodeBody(t, rec, &resp)
	if !resp.OK || len(resp.Colors) != 2 {
		t.Errorf("ok=%v colors=%v", resp.OK, resp.Colors)
	}
}
