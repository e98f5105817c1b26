package lookup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/storage"
)

// MetadataSource resolves NFT display metadata.
type MetadataSource interface {
	Metadata(ctx context.Context, mint string) (domain.NFTMetadata, error)
}

// RateSource returns the SOL/USD rate.
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

// CachedMetadata memoizes displayable metadata in a MetadataStore.
// Store failures degrade to a direct lookup.
type CachedMetadata struct {
	next  MetadataSource
	store storage.MetadataStore
	log   *logrus.Entry
}

// NewCachedMetadata wraps next with store.
func NewCachedMetadata(next MetadataSource, store storage.MetadataStore) *CachedMetadata {
	return &CachedMetadata{next: next, store: store, log: logging.WithComponent("lookup-cache")}
}

// Metadata implements MetadataSource.
func (c *CachedMetadata) Metadata(ctx context.Context, mint string) (domain.NFTMetadata, error) {
	cached, err := c.store.GetByMint(ctx, mint)
	if err == nil {
		observability.RecordCache("metadata", true)
		return *cached, nil
	}
	observability.RecordCache("metadata", false)
	if !errors.Is(err, storage.ErrNotFound) {
		c.log.WithError(err).WithField("mint", mint).Warn("metadata cache read failed")
	}

	meta, err := c.next.Metadata(ctx, mint)
	if err != nil {
		return domain.NFTMetadata{}, err
	}

	// Incomplete metadata is not cached so a later fix upstream is picked up.
	if meta.Name != "" && meta.Image != "" {
		if err := c.store.Insert(ctx, &meta); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			c.log.WithError(err).WithField("mint", mint).Warn("metadata cache write failed")
		}
	}
	return meta, nil
}

// CachedTables memoizes collection rank tables in a RarityStore for ttl.
type CachedTables struct {
	next  TableSource
	store storage.RarityStore
	ttl   time.Duration
	log   *logrus.Entry
}

// NewCachedTables wraps next with store.
func NewCachedTables(next TableSource, store storage.RarityStore, ttl time.Duration) *CachedTables {
	return &CachedTables{next: next, store: store, ttl: ttl, log: logging.WithComponent("lookup-cache")}
}

// Table implements TableSource.
func (c *CachedTables) Table(ctx context.Context, collection string) (*domain.RarityTable, error) {
	table, err := c.store.Get(ctx, collection)
	if err == nil {
		observability.RecordCache("rarity", true)
		return table, nil
	}
	observability.RecordCache("rarity", false)
	if !errors.Is(err, storage.ErrNotFound) {
		c.log.WithError(err).WithField("collection", collection).Warn("rarity cache read failed")
	}

	table, err = c.next.Table(ctx, collection)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, table, c.ttl); err != nil {
		c.log.WithError(err).WithField("collection", collection).Warn("rarity cache write failed")
	}
	return table, nil
}

// CachedRate reuses a fetched rate for ttl. Concurrent callers during a miss
// each fetch; the last writer wins.
type CachedRate struct {
	next RateSource
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	value   float64
	fetched time.Time
}

// NewCachedRate wraps next. A non-positive ttl disables caching.
func NewCachedRate(next RateSource, ttl time.Duration) *CachedRate {
	return &CachedRate{next: next, ttl: ttl, now: time.Now}
}

// Rate implements RateSource.
func (c *CachedRate) Rate(ctx context.Context) (float64, error) {
	if c.ttl <= 0 {
		return c.next.Rate(ctx)
	}

	c.mu.RLock()
	value, fetched := c.value, c.fetched
	c.mu.RUnlock()
	if !fetched.IsZero() && c.now().Sub(fetched) < c.ttl {
		observability.RecordCache("rate", true)
		return value, nil
	}
	observability.RecordCache("rate", false)

	v, err := c.next.Rate(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.value, c.fetched = v, c.now()
	c.mu.Unlock()
	return v, nil
}
