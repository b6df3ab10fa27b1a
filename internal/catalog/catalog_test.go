package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLookup(t *testing.T) {
	m := NewMemory()
	m.Set("P1", "https://x/garment.png")

	url, err := m.GarmentImageURL(context.Background(), "P1")
	if err != nil {
		t.Fatalf("GarmentImageURL failed: %v", err)
	}
	if url != "https://x/garment.png" {
		t.Errorf("Unexpected garment URL: %s", url)
	}
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()

	if _, err := m.GarmentImageURL(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// an empty URL counts as not found too
	m.Set("P2", "")
	if _, err := m.GarmentImageURL(context.Background(), "P2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty URL, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	m.Set("P1", "https://x/garment.png")
	m.Delete("P1")

	if _, err := m.GarmentImageURL(context.Background(), "P1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
