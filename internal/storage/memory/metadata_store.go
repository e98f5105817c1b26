// Package memory provides in-process implementations of the storage interfaces.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/storage"
)

// DefaultMetadataEntries bounds the metadata cache when no size is given.
const DefaultMetadataEntries = 50_000

// MetadataStoreOptions bounds a MetadataStore. Zero values keep the defaults:
// DefaultMetadataEntries entries and no expiry.
type MetadataStoreOptions struct {
	MaxEntries int
	TTL        time.Duration
}

// MetadataStore is an in-memory storage.MetadataStore. Least recently used
// entries are evicted past MaxEntries; entries older than TTL are dropped.
type MetadataStore struct {
	mu     sync.Mutex // serialises the duplicate check with Add
	byMint *expirable.LRU[string, domain.NFTMetadata]
}

// NewMetadataStore creates an empty store.
func NewMetadataStore(opts ...MetadataStoreOptions) *MetadataStore {
	size := DefaultMetadataEntries
	var ttl time.Duration
	if len(opts) > 0 {
		if opts[0].MaxEntries > 0 {
			size = opts[0].MaxEntries
		}
		ttl = opts[0].TTL
	}
	return &MetadataStore{byMint: expirable.NewLRU[string, domain.NFTMetadata](size, nil, ttl)}
}

// Insert adds metadata. Returns ErrDuplicateKey if the mint is cached.
func (s *MetadataStore) Insert(_ context.Context, m *domain.NFTMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint.Peek(m.Mint); exists {
		return storage.ErrDuplicateKey
	}

	cp := *m
	if cp.CreatedAt == 0 {
		cp.CreatedAt = time.Now().UnixMilli()
	}
	s.byMint.Add(m.Mint, cp)
	return nil
}

// GetByMint returns a copy of the cached metadata.
func (s *MetadataStore) GetByMint(_ context.Context, mint string) (*domain.NFTMetadata, error) {
	m, ok := s.byMint.Get(mint)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

// Len returns the number of cached entries.
func (s *MetadataStore) Len() int {
	return s.byMint.Len()
}

var _ storage.MetadataStore = (*MetadataStore)(nil)
