// Package storage defines the lookup cache stores and their shared errors.
package storage

import (
	"context"
	"time"

	"solana-sales-bot/internal/domain"
)

// MetadataStore caches resolved NFT display metadata (nft_metadata table).
type MetadataStore interface {
	// Insert adds metadata for a mint. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, m *domain.NFTMetadata) error

	// GetByMint returns cached metadata. Returns ErrNotFound if absent.
	GetByMint(ctx context.Context, mint string) (*domain.NFTMetadata, error)
}

// RarityStore caches whole-collection rank tables with an expiry.
type RarityStore interface {
	// Put stores t under t.Collection, replacing any previous table.
	Put(ctx context.Context, t *domain.RarityTable, ttl time.Duration) error

	// Get returns the table for collection. Returns ErrNotFound if absent or expired.
	Get(ctx context.Context, collection string) (*domain.RarityTable, error)
}
