package providers

import (
	"context"
)

// Input carries everything a provider needs for one try-on request.
// Exactly one person-image source is populated per call: raw bytes from a
// fresh upload, a URL to an already-stored image, or a legacy base64 string.
type Input struct {
	// Raw upload
	ImageBytes    []byte
	ImageMimeType string
	OriginalName  string

	// Pre-stored image
	ImageURL      string
	ImagePublicID string

	// Legacy clients send the image inline
	ImageBase64 string

	// ProductID resolves the garment image via the catalog
	ProductID string

	// Optional tuning knobs, passed through to providers that understand them
	Category         string
	GarmentPhotoType string
	NumSamples       int
	NumTimesteps     int
	GuidanceScale    float64
	Seed             *int64
	SegmentationFree *bool
}

// HasImage reports whether any person-image source is present.
func (in Input) HasImage() bool {
	return len(in.ImageBytes) > 0 || in.ImageURL != "" || in.ImageBase64 != ""
}

// Result is the flat envelope every provider resolves to. It is returned to
// HTTP clients verbatim, so the JSON field names are part of the contract.
// OK=true implies at least one preview field is non-empty; OK=false implies
// Error is non-empty.
type Result struct {
	OK               bool   `json:"ok"`
	PreviewURL       string `json:"previewUrl,omitempty"`
	PreviewBase64    string `json:"previewBase64,omitempty"`
	Error            string `json:"error,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	ModelVersion     string `json:"modelVersion"`
}

// Failure builds a failed Result attributed to the given model version.
func Failure(version, message string) Result {
	return Result{
		Error:        message,
		ModelVersion: version,
	}
}

// Provider defines the interface for a virtual try-on backend.
//
// Available must be a cheap check of local configuration only (API key or
// base URL present) and must not perform network I/O. TryOn performs all
// I/O and never returns a Go error: expected failures (missing input,
// downstream HTTP errors, timeouts) resolve to a Result with OK=false.
type Provider interface {
	Name() string
	Available() bool
	TryOn(ctx context.Context, in Input) Result
}
