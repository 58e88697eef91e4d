package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/garmentlab/huesplit"
	"github.com/garmentlab/huesplit/internal/imaging"
	"github.com/garmentlab/huesplit/internal/mask"
)

type healthResponse struct {
	OK             bool   `json:"ok"`
	Device         string `json:"device"`
	ModelAvailable bool   `json:"modelAvailable"`
	ModelLoaded    bool   `json:"modelLoaded"`
	Mode           string `json:"mode"`
	Warning        string `json:"warning,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OK:             true,
		Device:         s.model.Device(),
		ModelAvailable: s.model.Available(),
		ModelLoaded:    s.model.Available(),
	}
	if s.model.Available() {
		resp.Mode = "model"
	} else {
		resp.Mode = "kmeans"
		resp.Warning = "mask model not configured; using kmeans fallback"
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type autoRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
}

func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	if !s.model.Available() {
		s.respondError(w, http.StatusServiceUnavailable, "mask model not loaded")
		return
	}
	var req autoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	img, err := imaging.DecodeImageDataURL(req.ImageDataURL)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	grays, err := s.model.GenerateMasks(r.Context(), img)
	if err != nil {
		s.mapError(w, err)
		return
	}
	masks := make([]string, 0, len(grays))
	for _, g := range grays {
		encoded, err := imaging.EncodeMaskPNG(mask.FromGray(g), 0)
		if err != nil {
			s.mapError(w, err)
			return
		}
		masks = append(masks, encoded)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"masks": masks})
}

type colorLayersRequest struct {
	ImageDataURL string   `json:"imageDataUrl"`
	NumLayers    *int     `json:"num_layers"`
	MinAreaRatio *float64 `json:"min_area_ratio"`
	Blur         *int     `json:"blur"`
	Seed         *int64   `json:"seed"`
}

type layerResponse struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	SuggestedColor string `json:"suggestedColor"`
	MaskPNG        string `json:"maskPng"`
	CutoutPNG      string `json:"cutoutPng"`
	Area           int    `json:"area"`
}

type modelStatus struct {
	Available   bool   `json:"available"`
	ModelLoaded bool   `json:"modelLoaded"`
	Used        bool   `json:"used"`
	Mode        string `json:"mode"`
	Device      string `json:"device"`
}

func (s *Server) handleColorLayers(w http.ResponseWriter, r *http.Request) {
	var req colorLayersRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	numLayers := intOr(req.NumLayers, 4)
	minAreaRatio := floatOr(req.MinAreaRatio, 0.01)
	blur := intOr(req.Blur, 1)
	if numLayers < 2 || numLayers > 8 {
		s.respondError(w, http.StatusBadRequest, "num_layers must be between 2 and 8")
		return
	}
	if minAreaRatio < 0 || minAreaRatio > 0.5 {
		s.respondError(w, http.StatusBadRequest, "min_area_ratio must be between 0 and 0.5")
		return
	}
	if blur < 0 || blur > 9 {
		s.respondError(w, http.StatusBadRequest, "blur must be between 0 and 9")
		return
	}

	img, err := imaging.DecodeImageDataURL(req.ImageDataURL)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := img.Bounds()

	opts := huesplit.DefaultLayerOptions()
	opts.NumLayers = numLayers
	opts.MinAreaRatio = minAreaRatio
	opts.Seed = int64Or(req.Seed, 42)

	layers, usedModel, err := huesplit.ColorLayers(r.Context(), s.model, img, opts)
	if err != nil {
		s.mapError(w, err)
		return
	}
	if len(layers) == 0 {
		s.respondError(w, http.StatusBadRequest, "layer detection failed; try a simpler image or increase contrast")
		return
	}

	out := make([]layerResponse, 0, len(layers))
	imgArea := b.Dx() * b.Dy()
	for i, l := range layers {
		m := mask.FromGray(l.Mask)
		maskPNG, err := imaging.EncodeMaskPNG(m, blur)
		if err != nil {
			s.mapError(w, err)
			return
		}
		cutoutPNG, err := imaging.EncodeCutoutPNG(img, m, blur)
		if err != nil {
			s.mapError(w, err)
			return
		}
		out = append(out, layerResponse{
			ID:             l.ID,
			Label:          layerLabel(i + 1),
			SuggestedColor: l.Color,
			MaskPNG:        maskPNG,
			CutoutPNG:      cutoutPNG,
			Area:           int(l.AreaFrac * float64(imgArea)),
		})
	}

	mode := "kmeans"
	if usedModel {
		mode = "model"
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"width":  b.Dx(),
		"height": b.Dy(),
		"layers": out,
		"model": modelStatus{
			Available:   s.model.Available(),
			ModelLoaded: s.model.Available(),
			Used:        usedModel,
			Mode:        mode,
			Device:      s.model.Device(),
		},
	})
}

type objectFromPointRequest struct {
	ImageDataURL string   `json:"imageDataUrl"`
	X            *float64 `json:"x"`
	Y            *float64 `json:"y"`
}

func (s *Server) handleObjectFromPoint(w http.ResponseWriter, r *http.Request) {
	var req objectFromPointRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.X == nil || req.Y == nil {
		s.respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	img, err := imaging.DecodeImageDataURL(req.ImageDataURL)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, _, err := huesplit.ObjectFromPoint(r.Context(), s.model, img, *req.X, *req.Y)
	if err != nil {
		s.mapError(w, err)
		return
	}
	encoded, err := imaging.EncodeMaskPNG(mask.FromGray(obj), 1)
	if err != nil {
		s.mapError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"objectMaskDataUrl": encoded,
	})
}

type splitColorsRequest struct {
	ImageDataURL      string   `json:"imageDataUrl"`
	ObjectMaskDataURL string   `json:"objectMaskDataUrl"`
	MaxColors         *int     `json:"max_colors"`
	MinAreaRatio      *float64 `json:"min_area_ratio"`
	Seed              *int64   `json:"seed"`
}

type splitLayerResponse struct {
	ID          string  `json:"id"`
	MaskDataURL string  `json:"maskDataUrl"`
	AvgColor    string  `json:"avgColor"`
	AreaPct     float64 `json:"areaPct"`
}

func (s *Server) handleSplitColorsInMask(w http.ResponseWriter, r *http.Request) {
	var req splitColorsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	maxColors := intOr(req.MaxColors, 6)
	minAreaRatio := floatOr(req.MinAreaRatio, 0.02)
	if maxColors < 2 || maxColors > 10 {
		s.respondError(w, http.StatusBadRequest, "max_colors must be between 2 and 10")
		return
	}
	if minAreaRatio < 0 || minAreaRatio > 0.5 {
		s.respondError(w, http.StatusBadRequest, "min_area_ratio must be between 0 and 0.5")
		return
	}

	img, err := imaging.DecodeImageDataURL(req.ImageDataURL)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := img.Bounds()
	obj, err := imaging.DecodeMaskDataURL(req.ObjectMaskDataURL, b.Dx(), b.Dy())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	layers, err := huesplit.SplitObjectColors(r.Context(), img, obj.ToGray(), huesplit.SplitOptions{
		MaxColors:    maxColors,
		MinAreaRatio: minAreaRatio,
		Seed:         int64Or(req.Seed, 42),
	})
	if err != nil {
		s.mapError(w, err)
		return
	}

	out := make([]splitLayerResponse, 0, len(layers))
	for _, l := range layers {
		encoded, err := imaging.EncodeMaskPNG(mask.FromGray(l.Mask), 0)
		if err != nil {
			s.mapError(w, err)
			return
		}
		out = append(out, splitLayerResponse{
			ID:          l.ID,
			MaskDataURL: encoded,
			AvgColor:    l.Color,
			AreaPct:     l.AreaFrac,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "layers": out})
}

type paletteRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
	Count        *int   `json:"count"`
	Method       string `json:"method"`
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	var req paletteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	count := intOr(req.Count, 6)
	if count < 1 || count > 16 {
		s.respondError(w, http.StatusBadRequest, "count must be between 1 and 16")
		return
	}
	img, err := imaging.DecodeImageDataURL(req.ImageDataURL)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	colors := huesplit.PaletteColors(img, count, req.Method)
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "colors": colors})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}

// mapError translates engine error kinds to HTTP statuses.
func (s *Server) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, huesplit.ErrModelUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, huesplit.ErrInvalidInput),
		errors.Is(err, huesplit.ErrEmptyMask),
		errors.Is(err, huesplit.ErrInsufficientPixels),
		errors.Is(err, huesplit.ErrSegmentationFailed):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("internal error", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func layerLabel(n int) string {
	return "Layer " + strconv.Itoa(n)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func int64Or(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
