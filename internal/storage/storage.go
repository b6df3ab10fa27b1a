package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/diva-haus/tryon/internal/config"
)

// Categories used by the try-on pipeline.
const (
	CategoryTryOnTemp    = "try-on-temp"
	CategoryTryOnResults = "try-on-results"
)

// File is a blob to store along with its upload metadata.
type File struct {
	Bytes        []byte
	OriginalName string
	MimeType     string
}

// UploadResult reports the outcome of a Store call. On success URL is the
// public address of the blob and PublicID identifies it for deletion.
type UploadResult struct {
	Success  bool
	URL      string
	PublicID string
	Error    string
}

// Gateway is the blob storage contract the try-on providers depend on.
type Gateway interface {
	Store(ctx context.Context, f File, category string) UploadResult
	Delete(ctx context.Context, publicID string) bool
}

// New returns the gateway selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch cfg.Storage.Provider {
	case "", "local":
		return NewLocal(cfg.Storage.UploadsDir, cfg.Storage.BaseURL), nil
	case "gcs":
		return NewGCS(ctx, cfg.Storage.GCSBucket)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
}

// Local stores blobs on disk under an uploads directory and serves them
// from a public base URL. Intended for development and single-node use.
type Local struct {
	Dir     string
	BaseURL string
}

// NewLocal creates a local disk gateway.
func NewLocal(dir, baseURL string) *Local {
	return &Local{
		Dir:     dir,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// uniqueFilename prevents collisions between uploads with the same name.
func uniqueFilename(originalName string) string {
	ext := filepath.Ext(originalName)
	base := unsafeChars.ReplaceAllString(strings.TrimSuffix(filepath.Base(originalName), ext), "-")
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		return fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext)
	}
	return fmt.Sprintf("%s-%d-%s%s", base, time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
}

// Store writes the file under <dir>/<category>/ and returns its public URL.
func (l *Local) Store(_ context.Context, f File, category string) UploadResult {
	if category == "" {
		category = "general"
	}
	folder := filepath.Join(l.Dir, category)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return UploadResult{Error: fmt.Sprintf("failed to create upload directory: %v", err)}
	}

	filename := uniqueFilename(f.OriginalName)
	path := filepath.Join(folder, filename)
	if err := os.WriteFile(path, f.Bytes, 0644); err != nil {
		return UploadResult{Error: fmt.Sprintf("failed to write file: %v", err)}
	}

	slog.Debug("Stored local upload", "path", path, "bytes", len(f.Bytes))

	return UploadResult{
		Success:  true,
		URL:      fmt.Sprintf("%s/uploads/%s/%s", l.BaseURL, category, filename),
		PublicID: category + "/" + filename,
	}
}

// Delete removes a previously stored file by its public ID.
func (l *Local) Delete(_ context.Context, publicID string) bool {
	path := filepath.Join(l.Dir, filepath.Clean("/"+publicID))
	if err := os.Remove(path); err != nil {
		slog.Warn("Failed to delete local upload", "public_id", publicID, "err", err)
		return false
	}
	return true
}

// Prune removes temporary try-on artifacts older than maxAge and returns
// the number of files removed. Result images are kept.
func (l *Local) Prune(maxAge time.Duration) (int, error) {
	dir := filepath.Join(l.Dir, CategoryTryOnTemp)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			slog.Warn("Failed to prune temp upload", "file", entry.Name(), "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
