package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCS stores blobs as public objects in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a GCS-backed gateway. Credentials are resolved from the
// environment (Application Default Credentials).
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is empty")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// objectPublicURL returns the public HTTPS URL for an object.
func objectPublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.TrimLeft(object, "/"))
}

// Store writes the file as <category>/<uniqueName> in the bucket.
func (g *GCS) Store(ctx context.Context, f File, category string) UploadResult {
	if category == "" {
		category = "general"
	}
	object := category + "/" + uniqueFilename(f.OriginalName)

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = f.MimeType
	if _, err := w.Write(f.Bytes); err != nil {
		_ = w.Close()
		return UploadResult{Error: fmt.Sprintf("failed to write gcs object: %v", err)}
	}
	if err := w.Close(); err != nil {
		return UploadResult{Error: fmt.Sprintf("failed to finalize gcs object: %v", err)}
	}

	slog.Debug("Stored gcs upload", "bucket", g.bucket, "object", object, "bytes", len(f.Bytes))

	return UploadResult{
		Success:  true,
		URL:      objectPublicURL(g.bucket, object),
		PublicID: object,
	}
}

// Delete removes an object by its public ID.
func (g *GCS) Delete(ctx context.Context, publicID string) bool {
	if err := g.client.Bucket(g.bucket).Object(publicID).Delete(ctx); err != nil {
		slog.Warn("Failed to delete gcs object", "bucket", g.bucket, "object", publicID, "err", err)
		return false
	}
	return true
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
