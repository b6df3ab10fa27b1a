package tryon

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/fashn"
	"github.com/diva-haus/tryon/internal/gemini"
	"github.com/diva-haus/tryon/internal/huggingface"
	"github.com/diva-haus/tryon/internal/mock"
	"github.com/diva-haus/tryon/internal/pixazo"
	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/storage"
)

// fallbackOrder is the fixed priority among real adapters; the mock is
// always last as the guaranteed backstop.
var fallbackOrder = []string{"pixazo", "fashn", "gemini", "huggingface", "mock"}

// Selector chooses one provider per process using ordered fallback: the
// explicitly requested provider first, then the fixed priority list. The
// first candidate reporting Available wins and is cached for subsequent
// calls until Reset.
type Selector struct {
	cfg      *config.Config
	store    storage.Gateway
	products catalog.Lookup

	mu      sync.Mutex
	current providers.Provider
}

// NewSelector creates a provider selector over the given collaborators.
func NewSelector(cfg *config.Config, store storage.Gateway, products catalog.Lookup) *Selector {
	return &Selector{
		cfg:      cfg,
		store:    store,
		products: products,
	}
}

// Provider returns the selected provider, evaluating the fallback order on
// first use and the memoized instance thereafter.
func (s *Selector) Provider() providers.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current
	}

	requested := strings.ToLower(strings.TrimSpace(s.cfg.Provider))
	if requested == "" {
		requested = "mock"
	}

	for _, name := range append([]string{requested}, fallbackOrder...) {
		candidate := s.build(name)
		if candidate == nil {
			slog.Warn("Unknown try-on provider requested", "provider", name)
			continue
		}
		if !candidate.Available() {
			continue
		}
		if candidate.Name() != requested {
			slog.Warn("Requested try-on provider unavailable, falling back",
				"requested", requested, "selected", candidate.Name())
		} else {
			slog.Info("Selected try-on provider", "provider", candidate.Name())
		}
		s.current = candidate
		return candidate
	}

	// unreachable: the mock is always available
	s.current = mock.New()
	return s.current
}

// Reset clears the memoized selection so the next call re-evaluates the
// fallback order. Intended for tests and configuration reloads.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Candidates returns a fresh instance of every known provider in fallback
// order, for availability listings. It does not touch the memoized choice.
func (s *Selector) Candidates() []providers.Provider {
	out := make([]providers.Provider, 0, len(fallbackOrder))
	for _, name := range fallbackOrder {
		out = append(out, s.build(name))
	}
	return out
}

func (s *Selector) build(name string) providers.Provider {
	switch name {
	case "mock":
		return mock.New()
	case "fashn":
		return fashn.New(s.cfg, s.store, s.products)
	case "pixazo":
		return pixazo.New(s.cfg, s.store, s.products)
	case "huggingface":
		return huggingface.New(s.cfg, s.store, s.products)
	case "gemini":
		return gemini.New(s.cfg, s.store, s.products)
	default:
		return nil
	}
}
