package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diva-haus/tryon/internal/providers"
	"github.com/diva-haus/tryon/internal/tryon"
)

type fakeProvider struct {
	lastInput providers.Input
	result    providers.Result
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return true }

func (f *fakeProvider) TryOn(_ context.Context, in providers.Input) providers.Result {
	f.lastInput = in
	return f.result
}

type fakeSource struct {
	provider *fakeProvider
}

func (f *fakeSource) Provider() providers.Provider { return f.provider }

func (f *fakeSource) Candidates() []providers.Provider {
	return []providers.Provider{f.provider}
}

func newTestHandler(result providers.Result) (*Handler, *fakeProvider) {
	fake := &fakeProvider{result: result}
	return New(tryon.NewService(&fakeSource{provider: fake})), fake
}

func okResult() providers.Result {
	return providers.Result{
		OK:               true,
		PreviewURL:       "https://cdn.test/try-on-results/result.png",
		ProcessingTimeMs: 42,
		ModelVersion:     "fake-v1",
	}
}

func TestTryOnJSONRequest(t *testing.T) {
	handler, fake := newTestHandler(okResult())

	body := `{"imageUrl":"https://x/person.png","productId":"P1","category":"dresses"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tryon", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.HandleTryOn(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result providers.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.OK || result.PreviewURL != "https://cdn.test/try-on-results/result.png" {
		t.Errorf("Result envelope not passed through: %+v", result)
	}
	if fake.lastInput.ImageURL != "https://x/person.png" {
		t.Errorf("Unexpected image URL: %s", fake.lastInput.ImageURL)
	}
	if fake.lastInput.ProductID != "P1" || fake.lastInput.Category != "dresses" {
		t.Errorf("Request fields not mapped: %+v", fake.lastInput)
	}
}

func TestTryOnMultipartRequest(t *testing.T) {
	handler, fake := newTestHandler(okResult())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "me.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("raw image bytes"))
	mw.WriteField("productId", "P1")
	mw.WriteField("numSamples", "2")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/tryon", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	handler.HandleTryOn(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(fake.lastInput.ImageBytes) != "raw image bytes" {
		t.Error("Uploaded bytes not mapped to input")
	}
	if fake.lastInput.OriginalName != "me.png" {
		t.Errorf("Unexpected original name: %s", fake.lastInput.OriginalName)
	}
	if fake.lastInput.ProductID != "P1" || fake.lastInput.NumSamples != 2 {
		t.Errorf("Form fields not mapped: %+v", fake.lastInput)
	}
}

func TestTryOnFailureEnvelope(t *testing.T) {
	handler, _ := newTestHandler(providers.Failure("fake-v1", "upstream exploded"))

	body := `{"imageUrl":"https://x/person.png","productId":"P1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tryon", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.HandleTryOn(w, req)

	// failures still travel in the envelope, not as HTTP errors
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var result providers.Result
	json.NewDecoder(w.Body).Decode(&result)
	if result.OK || result.Error != "upstream exploded" {
		t.Errorf("Unexpected envelope: %+v", result)
	}
}

func TestTryOnRejectsNonPost(t *testing.T) {
	handler, _ := newTestHandler(okResult())

	req := httptest.NewRequest(http.MethodGet, "/api/tryon", nil)
	w := httptest.NewRecorder()

	handler.HandleTryOn(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestTryOnBadJSON(t *testing.T) {
	handler, _ := newTestHandler(okResult())

	req := httptest.NewRequest(http.MethodPost, "/api/tryon", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.HandleTryOn(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestProvidersListing(t *testing.T) {
	handler, _ := newTestHandler(okResult())

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	w := httptest.NewRecorder()

	handler.HandleProviders(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Providers []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"providers"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Providers) != 1 || resp.Providers[0].Name != "fake" || !resp.Providers[0].Available {
		t.Errorf("Unexpected providers listing: %+v", resp.Providers)
	}
}
