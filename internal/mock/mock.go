// Package mock implements the try-on provider of last resort. It simulates
// realistic latency so UIs can exercise progress indicators without a real
// backend, and never touches the network or storage.
package mock

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/diva-haus/tryon/internal/providers"
)

const (
	version    = "mock-v1"
	previewURL = "https://picsum.photos/seed/virtualtryon/400/400"
)

// Provider is the stub try-on backend.
type Provider struct {
	// Delay is the artificial latency before a response is produced.
	Delay time.Duration
}

// New returns a mock provider with the default two second delay.
func New() *Provider {
	return &Provider{Delay: 2 * time.Second}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "mock"
}

// Available always reports true: the mock is the guaranteed fallback.
func (p *Provider) Available() bool {
	return true
}

// TryOn validates the input, waits the artificial delay, and returns a
// fixed placeholder preview with a randomized processing-time figure.
func (p *Provider) TryOn(ctx context.Context, in providers.Input) providers.Result {
	select {
	case <-ctx.Done():
		return providers.Failure(version, ctx.Err().Error())
	case <-time.After(p.Delay):
	}

	if !in.HasImage() || in.ProductID == "" {
		return providers.Failure(version, "Missing image or productId for virtual try-on.")
	}

	if len(in.ImageBytes) > 0 {
		slog.Debug("Mock try-on processing upload",
			"file", in.OriginalName, "type", in.ImageMimeType, "bytes", len(in.ImageBytes))
	}
	if in.ImageURL != "" {
		slog.Debug("Mock try-on using stored image", "url", in.ImageURL)
	}

	// Simulated processing time, uniform in [1000, 3000) ms
	processingTime := int64(rand.Intn(2000) + 1000)

	return providers.Result{
		OK:               true,
		PreviewURL:       previewURL,
		ProcessingTimeMs: processingTime,
		ModelVersion:     version,
	}
}
