// Package pixazo implements the Pixazo FASHN virtual try-on gateway. Pixazo
// queues a request via one endpoint and exposes the result via a second one
// that must be polled until the job completes.
package pixazo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/storage"
)

const version = "pixazo-fashn-v1.6"

// Provider calls the Pixazo gateway REST API.
type Provider struct {
	apiKey          string
	requestEndpoint string
	resultEndpoint  string
	pollInterval    time.Duration
	maxPollAttempts int
	defaults        config.TuningDefaults
	store           storage.Gateway
	products        catalog.Lookup
	httpClient      *http.Client
}

// New creates a Pixazo provider from the service configuration.
func New(cfg *config.Config, store storage.Gateway, products catalog.Lookup) *Provider {
	base := strings.TrimRight(cfg.Pixazo.BaseURL, "/")
	return &Provider{
		apiKey:          cfg.Pixazo.APIKey,
		requestEndpoint: base + "/fashn-virtual-try-on-request",
		resultEndpoint:  base + "/fashn-virtual-try-on-request-result",
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		defaults:        cfg.Defaults,
		store:           store,
		products:        products,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "pixazo"
}

// Available reports whether an API key is configured.
func (p *Provider) Available() bool {
	return p.apiKey != ""
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type resultResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Images       []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// TryOn submits the job and polls for its result until completion, remote
// failure, or the attempt budget runs out.
func (p *Provider) TryOn(ctx context.Context, in providers.Input) providers.Result {
	if in.ProductID == "" {
		return providers.Failure(version, "person image and productId are required for Pixazo provider")
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
		"model_image":        personURL,
		"garment_image":      garmentURL,
		"category":           p.defaults.Category,
		"mode":               p.defaults.Mode,
		"garment_photo_type": p.defaults.GarmentPhotoType,
		"moderation_level":   p.defaults.ModerationLevel,
		"num_samples":        p.defaults.NumSamples,
		"segmentation_free":  p.defaults.SegmentationFree,
		"output_format":      p.defaults.OutputFormat,
	}
	if in.Category != "" {
		payload["category"] = in.Category
	}
	if in.GarmentPhotoType != "" {
		payload["garment_photo_type"] = in.GarmentPhotoType
	}
	if in.NumSamples > 0 {
		payload["num_samples"] = in.NumSamples
	}
	if in.Seed != nil {
		payload["seed"] = *in.Seed
	}
	if in.SegmentationFree != nil {
		payload["segmentation_free"] = *in.SegmentationFree
	}

	start := time.Now()

	var submit submitResponse
	if failMsg := p.postJSON(ctx, p.requestEndpoint, payload, &submit); failMsg != "" {
		return providers.Failure(version, decorate(failMsg))
	}
	if submit.RequestID == "" {
		return providers.Failure(version, "Pixazo did not return a request_id")
	}

	final, failMsg := p.pollResult(ctx, submit.RequestID)
	if failMsg != "" {
		return providers.Failure(version, decorate(failMsg))
	}

	if len(final.Images) == 0 || final.Images[0].URL == "" {
		return providers.Failure(version, "Pixazo returned no image URL")
	}

	return providers.Result{
		OK:               true,
		PreviewURL:       final.Images[0].URL,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		ModelVersion:     version,
	}
}

// pollResult checks the result endpoint at a fixed interval until the job
// completes, fails, or the attempt budget is exhausted.
func (p *Provider) pollResult(ctx context.Context, requestID string) (*resultResponse, string) {
	for i := 0; i < p.maxPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err().Error()
		case <-time.After(p.pollInterval):
		}

		var result resultResponse
		if failMsg := p.postJSON(ctx, p.resultEndpoint, map[string]string{"request_id": requestID}, &result); failMsg != "" {
			return nil, failMsg
		}

		switch result.Status {
		case "COMPLETED":
			return &result, ""
		case "FAILED":
			msg := result.ErrorMessage
			if msg == "" {
				msg = "unknown"
			}
			return nil, "Pixazo processing failed: " + msg
		}
		// still queued or running, keep waiting
	}
	return nil, "Pixazo processing timed out"
}

// postJSON sends a JSON POST with the gateway auth headers and decodes the
// response into out. It returns a non-empty message on failure.
func (p *Provider) postJSON(ctx context.Context, endpoint string, payload any, out any) string {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("failed to reach Pixazo gateway: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return fmt.Sprintf("Pixazo request error %d: %s", resp.StatusCode, string(text))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Sprintf("failed to decode Pixazo response: %v", err)
	}
	return ""
}

// decorate appends a quota hint for the common empty-balance confusion.
func decorate(msg string) string {
	if strings.Contains(strings.ToLower(msg), "balance") {
		return msg + " (your Pixazo subscription may have run out; try another provider or top up your plan)"
	}
	return msg
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
			r := providers.Failure(version, "failed to upload temporary person image for Pixazo provider")
			return "", &r
		}
		return tmp.URL, nil
	}
	r := providers.Failure(version, "no person image available")
	return "", &r
}
