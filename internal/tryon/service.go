// Package tryon contains the virtual try-on orchestration layer: provider
// selection with ordered fallback and the service façade callers use.
package tryon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diva-haus/tryon/internal/providers"
)

// ProviderSource yields the provider handling requests plus the full
// candidate list for availability listings. *Selector is the production
// implementation.
type ProviderSource interface {
	Provider() providers.Provider
	Candidates() []providers.Provider
}

// Service is the entry point for virtual try-on requests. It owns the
// provider selection cache and guarantees callers always receive a Result
// envelope, never an error or a panic.
type Service struct {
	selector ProviderSource
}

// NewService creates the try-on service over a provider source.
func NewService(selector ProviderSource) *Service {
	return &Service{selector: selector}
}

// Selector exposes the underlying provider source, for availability listings.
func (s *Service) Selector() ProviderSource {
	return s.selector
}

// Run validates the request shape, dispatches it to the selected provider,
// and normalizes every failure mode into the Result envelope. Malformed
// requests never reach a provider.
func (s *Service) Run(ctx context.Context, in providers.Input) (out providers.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Try-on provider panicked", "panic", r)
			out = providers.Failure("none", "virtual try-on failed unexpectedly")
		}
	}()

	if !in.HasImage() || in.ProductID == "" {
		return providers.Failure("none", "Missing image or productId for virtual try-on.")
	}

	provider := s.selector.Provider()
	if !provider.Available() {
		return providers.Failure("none", fmt.Sprintf("provider %s is not available", provider.Name()))
	}

	return provider.TryOn(ctx, in)
}
