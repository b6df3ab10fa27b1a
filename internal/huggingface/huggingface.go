// Package huggingface is a fallback provider that repurposes the Hugging
// Face Inference API for try-on. It builds a prompt embedding the person and
// garment image URLs and stores the generated PNG.
package huggingface

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

// Provider calls a text-to-image model on the Hugging Face router.
type Provider struct {
	token      string
	model      string
	endpoint   string
	version    string
	store      storage.Gateway
	products   catalog.Lookup
	httpClient *http.Client
}

// New creates a Hugging Face provider from the service configuration.
// The old api-inference endpoint returns 410; the router URL is the
// documented replacement.
func New(cfg *config.Config, store storage.Gateway, products catalog.Lookup) *Provider {
	return &Provider{
		token:    cfg.HuggingFace.Token,
		model:    cfg.HuggingFace.Model,
		endpoint: "https://router.huggingface.co/models/" + cfg.HuggingFace.Model,
		version:  "hf-" + cfg.HuggingFace.Model,
		store:    store,
		products: products,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "huggingface"
}

// Available reports whether an API token is configured.
func (p *Provider) Available() bool {
	return p.token != ""
}

// TryOn generates a try-on image from a descriptive prompt. The person
// image must already be stored somewhere fetchable; raw uploads are not
// supported by this provider.
func (p *Provider) TryOn(ctx context.Context, in providers.Input) providers.Result {
	if in.ImageURL == "" || in.ProductID == "" {
		return providers.Failure(p.version, "person image URL and productId are required for HuggingFace fallback")
	}

	garmentURL, err := p.products.GarmentImageURL(ctx, in.ProductID)
	if err != nil {
		return providers.Failure(p.version, "unable to determine garment image for product "+in.ProductID)
	}

	prompt := fmt.Sprintf(
		"Generate a photorealistic image of the person shown at %s wearing the garment shown at %s. "+
			"Preserve the person's face, body, pose and lighting. Do not alter the background.",
		in.ImageURL, garmentURL)

	body, err := json.Marshal(map[string]any{
		"inputs":  prompt,
		"options": map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to reach HuggingFace API: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A 404 usually means a wrong model identifier or a token without
		// access to the repository (license not accepted). Give the
		// developer something actionable instead of a bare status code.
		if resp.StatusCode == http.StatusNotFound {
			return providers.Failure(p.version, fmt.Sprintf(
				"HuggingFace model not found (404). Ensure HF_API_MODEL is correct and that your token has "+
					"permission/you've accepted the license on https://huggingface.co/models/%s", p.model))
		}
		text, _ := io.ReadAll(resp.Body)
		return providers.Failure(p.version, fmt.Sprintf("HuggingFace API error %d: %s", resp.StatusCode, string(text)))
	}

	imgBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to read HuggingFace response: %v", err))
	}

	elapsed := time.Since(start).Milliseconds()

	upload := p.store.Store(ctx, storage.File{
		Bytes:        imgBytes,
		OriginalName: "tryon-hf.png",
		MimeType:     "image/png",
	}, storage.CategoryTryOnResults)

	if !upload.Success {
		slog.Warn("Failed to store HuggingFace result image, returning base64 instead", "err", upload.Error)
		return providers.Result{
			OK:               true,
			PreviewBase64:    base64.StdEncoding.EncodeToString(imgBytes),
			ProcessingTimeMs: elapsed,
			ModelVersion:     p.version,
		}
	}

	return providers.Result{
		OK:               true,
		PreviewURL:       upload.URL,
		ProcessingTimeMs: elapsed,
		ModelVersion:     p.version,
	}
}
