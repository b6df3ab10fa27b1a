package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres resolves garment images from the storefront's products table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an existing database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects to the catalog database and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// GarmentImageURL returns the garment image URL for the product.
func (p *Postgres) GarmentImageURL(ctx context.Context, productID string) (string, error) {
	var url sql.NullString
	err := p.db.QueryRowContext(ctx,
		"SELECT image_url FROM products WHERE id = $1", productID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query product %s: %w", productID, err)
	}
	if !url.Valid || url.String == "" {
		return "", ErrNotFound
	}
	return url.String, nil
}

// Close releases the underlying database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}
