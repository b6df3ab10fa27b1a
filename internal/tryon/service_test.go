package tryon

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/diva-haus/tryon/internal/providers"
)

// fakeProvider is a scriptable provider for orchestrator tests.
type fakeProvider struct {
	name      string
	available bool
	calls     int32
	result    providers.Result
	panics    bool
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) TryOn(_ context.Context, _ providers.Input) providers.Result {
	atomic.AddInt32(&f.calls, 1)
	if f.panics {
		panic("provider blew up")
	}
	return f.result
}

// fakeSource satisfies ProviderSource with a fixed provider.
type fakeSource struct {
	provider *fakeProvider
}

func (f *fakeSource) Provider() providers.Provider { return f.provider }

func (f *fakeSource) Candidates() []providers.Provider {
	return []providers.Provider{f.provider}
}

func validInput() providers.Input {
	return providers.Input{ImageURL: "https://x/person.png", ProductID: "P1"}
}

func TestRunDelegates(t *testing.T) {
	fake := &fakeProvider{
		name:      "fake",
		available: true,
		result: providers.Result{
			OK:               true,
			PreviewURL:       "https://x/result.png",
			ProcessingTimeMs: 42,
			ModelVersion:     "fake-v1",
		},
	}
	svc := NewService(&fakeSource{provider: fake})

	result := svc.Run(context.Background(), validInput())

	if !result.OK {
		t.Fatalf("Expected OK=true, got error %q", result.Error)
	}
	if result.PreviewURL != "https://x/result.png" || result.ModelVersion != "fake-v1" {
		t.Errorf("Result should pass through unmodified, got %+v", result)
	}
	if fake.calls != 1 {
		t.Errorf("Expected exactly 1 provider call, got %d", fake.calls)
	}
}

func TestRunRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		in   providers.Input
	}{
		{"empty", providers.Input{}},
		{"no image", providers.Input{ProductID: "P1"}},
		{"no product", providers.Input{ImageURL: "https://x/person.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{name: "fake", available: true}
			svc := NewService(&fakeSource{provider: fake})

			result := svc.Run(context.Background(), tt.in)

			if result.OK {
				t.Fatal("Expected OK=false for malformed input")
			}
			if result.Error != "Missing image or productId for virtual try-on." {
				t.Errorf("Unexpected error: %q", result.Error)
			}
			if result.ModelVersion != "none" {
				t.Errorf("Expected modelVersion=none, got %q", result.ModelVersion)
			}
			if fake.calls != 0 {
				t.Errorf("Malformed input must not reach the provider, saw %d calls", fake.calls)
			}
		})
	}
}

func TestRunUnavailableProvider(t *testing.T) {
	fake := &fakeProvider{name: "pixazo", available: false}
	svc := NewService(&fakeSource{provider: fake})

	result := svc.Run(context.Background(), validInput())

	if result.OK {
		t.Fatal("Expected OK=false for unavailable provider")
	}
	if result.Error != "provider pixazo is not available" {
		t.Errorf("Unexpected error: %q", result.Error)
	}
	if result.ModelVersion != "none" {
		t.Errorf("Expected modelVersion=none, got %q", result.ModelVersion)
	}
	if fake.calls != 0 {
		t.Error("Unavailable provider must not be invoked")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	fake := &fakeProvider{name: "fake", available: true, panics: true}
	svc := NewService(&fakeSource{provider: fake})

	result := svc.Run(context.Background(), validInput())

	if result.OK {
		t.Fatal("Expected OK=false when the provider panics")
	}
	if result.ModelVersion != "none" {
		t.Errorf("Expected modelVersion=none, got %q", result.ModelVersion)
	}
	if !strings.Contains(result.Error, "unexpectedly") {
		t.Errorf("Expected generic error message, got %q", result.Error)
	}
}

func TestRunWithSelectorEndToEnd(t *testing.T) {
	cfg := selectorConfig()
	cfg.Provider = "mock"
	svc := NewService(newTestSelector(cfg))

	if name := svc.Selector().Provider().Name(); name != "mock" {
		t.Fatalf("Expected mock provider, got %s", name)
	}

	result := svc.Run(context.Background(), providers.Input{})
	if result.OK {
		t.Fatal("Expected validation failure before reaching the mock")
	}
	if result.ModelVersion != "none" {
		t.Errorf("Expected modelVersion=none, got %q", result.ModelVersion)
	}
}

func TestRunConcurrentRequestsIndependent(t *testing.T) {
	fake := &fakeProvider{
		name:      "fake",
		available: true,
		result:    providers.Result{OK: true, PreviewURL: "https://x/r.png", ModelVersion: "fake-v1"},
	}
	svc := NewService(&fakeSource{provider: fake})

	done := make(chan providers.Result, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			done <- svc.Run(context.Background(), providers.Input{
				ImageURL:  "https://x/person.png",
				ProductID: fmt.Sprintf("P%d", i),
			})
		}(i)
	}
	for i := 0; i < 8; i++ {
		if r := <-done; !r.OK {
			t.Errorf("Concurrent request failed: %q", r.Error)
		}
	}
	if fake.calls != 8 {
		t.Errorf("Expected 8 provider calls, got %d", fake.calls)
	}
}
