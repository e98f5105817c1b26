package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/storage"
)

// MetadataStore implements storage.MetadataStore on the nft_metadata table.
type MetadataStore struct {
	pool *Pool
}

// NewMetadataStore creates a MetadataStore.
func NewMetadataStore(pool *Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

var _ storage.MetadataStore = (*MetadataStore)(nil)

// Insert adds metadata. Returns ErrDuplicateKey if the mint exists.
func (s *MetadataStore) Insert(ctx context.Context, m *domain.NFTMetadata) (err error) {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "nft_metadata_insert", time.Since(start).Seconds(), err)
	}()

	const query = `
		INSERT INTO nft_metadata (mint, name, symbol, uri, image, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.pool.Exec(ctx, query, m.Mint, m.Name, m.Symbol, m.URI, m.Image, m.FetchedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert nft metadata: %w", err)
	}
	return nil
}

// GetByMint returns cached metadata. Returns ErrNotFound if absent.
func (s *MetadataStore) GetByMint(ctx context.Context, mint string) (*domain.NFTMetadata, error) {
	start := time.Now()
	const query = `
		SELECT mint, name, symbol, uri, image, fetched_at, created_at
		FROM nft_metadata
		WHERE mint = $1
	`

	var m domain.NFTMetadata
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&m.Mint, &m.Name, &m.Symbol, &m.URI, &m.Image, &m.FetchedAt, &m.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			observability.RecordDBQuery("postgres", "nft_metadata_get", time.Since(start).Seconds(), nil)
			return nil, storage.ErrNotFound
		}
		observability.RecordDBQuery("postgres", "nft_metadata_get", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("get nft metadata: %w", err)
	}
	observability.RecordDBQuery("postgres", "nft_metadata_get", time.Since(start).Seconds(), nil)
	return &m, nil
}
