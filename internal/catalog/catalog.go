package catalog

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no garment image exists for a product.
var ErrNotFound = errors.New("product not found")

// Lookup resolves a product identifier to its garment image URL.
type Lookup interface {
	GarmentImageURL(ctx context.Context, productID string) (string, error)
}

// Memory is an in-memory product catalog, used for development and tests.
type Memory struct {
	products map[string]string
	mu       sync.RWMutex
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]string),
	}
}

// Set registers or replaces the garment image URL for a product.
func (m *Memory) Set(productID, garmentURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID] = garmentURL
}

// Delete removes a product from the catalog.
func (m *Memory) Delete(productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, productID)
}

// GarmentImageURL returns the garment image URL for the product.
func (m *Memory) GarmentImageURL(_ context.Context, productID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, exists := m.products[productID]
	if !exists || url == "" {
		return "", ErrNotFound
	}
	return url, nil
}
