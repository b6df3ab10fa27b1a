// Package fashn forwards try-on requests to an external microservice running
// FASHN VTON v1.5. The service exposes a single synchronous HTTP endpoint
// that returns a base64 encoded preview image.
package fashn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/storage"
)

const version = "fashn-v1.5"

// Provider calls the FASHN VTON microservice.
type Provider struct {
	serviceURL string
	store      storage.Gateway
	products   catalog.Lookup
	httpClient *http.Client
}

// New creates a FASHN provider from the service configuration.
func New(cfg *config.Config, store storage.Gateway, products catalog.Lookup) *Provider {
	return &Provider{
		serviceURL: cfg.Fashn.ServiceURL,
		store:      store,
		products:   products,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "fashn"
}

// Available reports whether the service URL is configured. A health ping
// would make startup slow, so readiness is configuration-only.
func (p *Provider) Available() bool {
	return p.serviceURL != ""
}

type serviceResponse struct {
	OK               bool   `json:"ok"`
	PreviewBase64    string `json:"previewBase64"`
	Error            string `json:"error"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	ModelVersion     string `json:"modelVersion"`
}

// TryOn sends the person and garment image URLs to the VTON service and
// stores the resulting image. If storing fails the base64 payload is
// returned inline so the result is never dropped.
func (p *Provider) TryOn(ctx context.Context, in providers.Input) providers.Result {
	if in.ProductID == "" {
		return providers.Failure(version, "productId is required for FASHN provider")
	}

	personURL, errResult := p.resolvePersonURL(ctx, in)
	if errResult != nil {
		return *errResult
	}

	garmentURL, err := p.products.GarmentImageURL(ctx, in.ProductID)
	if err != nil {
		return providers.Failure(version, "unable to determine garment image for product "+in.ProductID)
	}

	payload := map[string]any{
		"person_image_url":  personURL,
		"garment_image_url": garmentURL,
		"category":          in.Category,
	}
	if payload["category"] == "" {
		payload["category"] = "tops"
	}
	if in.GarmentPhotoType != "" {
		payload["garment_photo_type"] = in.GarmentPhotoType
	}
	if in.NumSamples > 0 {
		payload["num_samples"] = in.NumSamples
	}
	if in.NumTimesteps > 0 {
		payload["num_timesteps"] = in.NumTimesteps
	}
	if in.GuidanceScale > 0 {
		payload["guidance_scale"] = in.GuidanceScale
	}
	if in.Seed != nil {
		payload["seed"] = *in.Seed
	}
	if in.SegmentationFree != nil {
		payload["segmentation_free"] = *in.SegmentationFree
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Failure(version, fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL, bytes.NewReader(body))
	if err != nil {
		return providers.Failure(version, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return providers.Failure(version, fmt.Sprintf("failed to reach FASHN service: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return providers.Failure(version, fmt.Sprintf("FASHN service responded %d: %s", resp.StatusCode, string(text)))
	}

	var svc serviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&svc); err != nil {
		return providers.Failure(version, fmt.Sprintf("failed to decode FASHN response: %v", err))
	}

	modelVersion := svc.ModelVersion
	if modelVersion == "" {
		modelVersion = version
	}

	if !svc.OK {
		msg := svc.Error
		if msg == "" {
			msg = "FASHN service reported failure"
		}
		return providers.Result{
			Error:            msg,
			ProcessingTimeMs: svc.ProcessingTimeMs,
			ModelVersion:     modelVersion,
		}
	}

	processingTime := svc.ProcessingTimeMs
	if processingTime == 0 {
		processingTime = time.Since(start).Milliseconds()
	}

	// The service returns base64; decode and store so the frontend gets a URL.
	imgBytes, err := base64.StdEncoding.DecodeString(svc.PreviewBase64)
	if err != nil {
		return providers.Failure(modelVersion, fmt.Sprintf("FASHN service returned invalid base64: %v", err))
	}

	upload := p.store.Store(ctx, storage.File{
		Bytes:        imgBytes,
		OriginalName: "tryon-result.png",
		MimeType:     "image/png",
	}, storage.CategoryTryOnResults)

	if !upload.Success {
		slog.Warn("Failed to store FASHN result image, returning base64 instead", "err", upload.Error)
		return providers.Result{
			OK:               true,
			PreviewBase64:    svc.PreviewBase64,
			ProcessingTimeMs: processingTime,
			ModelVersion:     modelVersion,
		}
	}

	return providers.Result{
		OK:               true,
		PreviewURL:       upload.URL,
		ProcessingTimeMs: processingTime,
		ModelVersion:     modelVersion,
	}
}

// resolvePersonURL returns a fetchable URL for the person image, uploading
// raw bytes to temporary storage when that is all the caller supplied.
func (p *Provider) resolvePersonURL(ctx context.Context, in providers.Input) (string, *providers.Result) {
	if in.ImageURL != "" {
		return in.ImageURL, nil
	}
	if len(in.ImageBytes) > 0 {
		name := in.OriginalName
		if name == "" {
			name = "body-image.png"
		}
		mimeType := in.ImageMimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		tmp := p.store.Store(ctx, storage.File{
			Bytes:        in.ImageBytes,
			OriginalName: name,
			MimeType:     mimeType,
		}, storage.CategoryTryOnTemp)
		if !tmp.Success {
			r := providers.Failure(version, "failed to upload temporary person image for FASHN provider")
			return "", &r
		}
		return tmp.URL, nil
	}
	r := providers.Failure(version, "no person image available")
	return "", &r
}
