package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png bytes"))
	}))
	defer srv.Close()

	data, mimeType, err := NewFetcher().Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != "png bytes" {
		t.Error("Unexpected body")
	}
	if mimeType != "image/png" {
		t.Errorf("Expected image/png, got %s", mimeType)
	}
}

func TestDownloadDetectsMimeType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress implicit detection by net/http
		w.Write([]byte("\x89PNG\r\n\x1a\nrest of image"))
	}))
	defer srv.Close()

	_, mimeType, err := NewFetcher().Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("Expected sniffed image/png, got %s", mimeType)
	}
}

func TestDownloadNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, _, err := NewFetcher().Download(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for 404 response")
	}
}

func TestDownloadBadURL(t *testing.T) {
	if _, _, err := NewFetcher().Download(context.Background(), "http://127.0.0.1:1/nope.png"); err == nil {
		t.Error("Expected error for unreachable host")
	}
}
