// Package gemini implements try-on through Google's image generation
// models. Both images are sent inline with an instruction prompt and the
// first image part of the response is taken as the result.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/images"
	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/storage"
)

const prompt = "Generate a photorealistic image of the person in the first image wearing the garment " +
	"shown in the second image. Preserve the person's face, body, pose and lighting. " +
	"Only change the clothing; do not alter the background."

// Provider generates try-on previews with a Gemini image model.
type Provider struct {
	apiKey   string
	model    string
	version  string
	store    storage.Gateway
	products catalog.Lookup
	fetcher  *images.Fetcher
}

// New creates a Gemini provider from the service configuration.
func New(cfg *config.Config, store storage.Gateway, products catalog.Lookup) *Provider {
	return &Provider{
		apiKey:   cfg.Gemini.APIKey,
		model:    cfg.Gemini.Model,
		version:  "gemini-" + cfg.Gemini.Model,
		store:    store,
		products: products,
		fetcher:  images.NewFetcher(),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// Available reports whether an API key is configured.
func (p *Provider) Available() bool {
	return p.apiKey != ""
}

// TryOn downloads the person and garment images, submits them to the model,
// and stores the generated preview.
func (p *Provider) TryOn(ctx context.Context, in providers.Input) providers.Result {
	if in.ProductID == "" {
		return providers.Failure(p.version, "productId is required for Gemini provider")
	}

	personBytes, personMime, errMsg := p.personImage(ctx, in)
	if errMsg != "" {
		return providers.Failure(p.version, errMsg)
	}

	garmentURL, err := p.products.GarmentImageURL(ctx, in.ProductID)
	if err != nil {
		return providers.Failure(p.version, "unable to determine garment image for product "+in.ProductID)
	}

	garmentBytes, garmentMime, err := p.fetcher.Download(ctx, garmentURL)
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to fetch garment image: %v", err))
	}

	start := time.Now()

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to create gemini client: %v", err))
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData(imageFormat(personMime), personBytes),
		genai.ImageData(imageFormat(garmentMime), garmentBytes),
	)
	if err != nil {
		return providers.Failure(p.version, fmt.Sprintf("failed to generate content: %v", err))
	}

	resultBytes, resultMime := firstImagePart(resp)
	if resultBytes == nil {
		return providers.Failure(p.version, "no image returned from Gemini")
	}

	elapsed := time.Since(start).Milliseconds()

	upload := p.store.Store(ctx, storage.File{
		Bytes:        resultBytes,
		OriginalName: "tryon-gemini.png",
		MimeType:     resultMime,
	}, storage.CategoryTryOnResults)

	if !upload.Success {
		slog.Warn("Failed to store Gemini result image, returning base64 instead", "err", upload.Error)
		return providers.Result{
			OK:               true,
			PreviewBase64:    base64.StdEncoding.EncodeToString(resultBytes),
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

// personImage resolves the person image to raw bytes from whichever source
// the caller supplied.
func (p *Provider) personImage(ctx context.Context, in providers.Input) ([]byte, string, string) {
	switch {
	case len(in.ImageBytes) > 0:
		return in.ImageBytes, in.ImageMimeType, ""
	case in.ImageURL != "":
		data, mimeType, err := p.fetcher.Download(ctx, in.ImageURL)
		if err != nil {
			return nil, "", fmt.Sprintf("failed to fetch person image: %v", err)
		}
		return data, mimeType, ""
	case in.ImageBase64 != "":
		data, err := base64.StdEncoding.DecodeString(in.ImageBase64)
		if err != nil {
			return nil, "", fmt.Sprintf("invalid base64 person image: %v", err)
		}
		return data, "image/png", ""
	default:
		return nil, "", "no person image available"
	}
}

// imageFormat converts a MIME type to the bare format genai expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" {
		return "png"
	}
	return format
}

// firstImagePart returns the first inline image blob in the response.
func firstImagePart(resp *genai.GenerateContentResponse) ([]byte, string) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok {
				return blob.Data, blob.MIMEType
			}
		}
	}
	return nil, ""
}
