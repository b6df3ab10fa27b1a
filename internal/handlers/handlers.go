package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/tryon"
)

// maxUploadBytes limits person image uploads to 10MB.
const maxUploadBytes = 10 * 1024 * 1024

// Handler exposes the try-on core over HTTP.
type Handler struct {
	service *tryon.Service
}

// New creates the HTTP handler over the try-on service.
func New(service *tryon.Service) *Handler {
	return &Handler{service: service}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// HandleTryOn accepts a try-on request as either a multipart upload or a
// JSON body and returns the provider's result envelope verbatim.
func (h *Handler) HandleTryOn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in providers.Input
	var ok bool
	if isJSONRequest(r) {
		in, ok = h.parseJSONRequest(w, r)
	} else {
		in, ok = h.parseMultipartRequest(w, r)
	}
	if !ok {
		return
	}

	result := h.service.Run(r.Context(), in)
	h.writeJSON(w, result)
}

// HandleProviders lists every known provider and its availability.
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type providerInfo struct {
		Name      string `json:"name"`
		Available bool   `json:"available"`
	}

	var list []providerInfo
	for _, p := range h.service.Selector().Candidates() {
		list = append(list, providerInfo{Name: p.Name(), Available: p.Available()})
	}
	h.writeJSON(w, map[string]any{"providers": list})
}

func isJSONRequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

type tryOnRequest struct {
	ImageURL         string  `json:"imageUrl"`
	ImagePublicID    string  `json:"imagePublicId"`
	ImageBase64      string  `json:"imageBase64"`
	ProductID        string  `json:"productId"`
	Category         string  `json:"category"`
	GarmentPhotoType string  `json:"garmentPhotoType"`
	NumSamples       int     `json:"numSamples"`
	NumTimesteps     int     `json:"numTimesteps"`
	GuidanceScale    float64 `json:"guidanceScale"`
	Seed             *int64  `json:"seed"`
	SegmentationFree *bool   `json:"segmentationFree"`
}

func (h *Handler) parseJSONRequest(w http.ResponseWriter, r *http.Request) (providers.Input, bool) {
	var req tryOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return providers.Input{}, false
	}
	return providers.Input{
		ImageURL:         req.ImageURL,
		ImagePublicID:    req.ImagePublicID,
		ImageBase64:      req.ImageBase64,
		ProductID:        req.ProductID,
		Category:         req.Category,
		GarmentPhotoType: req.GarmentPhotoType,
		NumSamples:       req.NumSamples,
		NumTimesteps:     req.NumTimesteps,
		GuidanceScale:    req.GuidanceScale,
		Seed:             req.Seed,
		SegmentationFree: req.SegmentationFree,
	}, true
}

func (h *Handler) parseMultipartRequest(w http.ResponseWriter, r *http.Request) (providers.Input, bool) {
	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return providers.Input{}, false
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return providers.Input{}, false
	}
	if len(fileData) > maxUploadBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return providers.Input{}, false
	}

	in := providers.Input{
		ImageBytes:       fileData,
		ImageMimeType:    header.Header.Get("Content-Type"),
		OriginalName:     header.Filename,
		ProductID:        r.FormValue("productId"),
		Category:         r.FormValue("category"),
		GarmentPhotoType: r.FormValue("garmentPhotoType"),
	}
	if v, err := strconv.Atoi(r.FormValue("numSamples")); err == nil {
		in.NumSamples = v
	}
	if v, err := strconv.Atoi(r.FormValue("numTimesteps")); err == nil {
		in.NumTimesteps = v
	}
	if v, err := strconv.ParseFloat(r.FormValue("guidanceScale"), 64); err == nil {
		in.GuidanceScale = v
	}
	if v, err := strconv.ParseInt(r.FormValue("seed"), 10, 64); err == nil {
		in.Seed = &v
	}
	if v, err := strconv.ParseBool(r.FormValue("segmentationFree")); err == nil {
		in.SegmentationFree = &v
	}
	return in, true
}
