// Package redisstore implements storage.RarityStore on Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/storage"
)

const defaultPrefix = "salesbot:rarity:"

// RarityStore keeps one JSON document per collection, expired by Redis.
type RarityStore struct {
	client redis.Cmdable
	prefix string
}

// NewRarityStore creates a store. An empty prefix uses "salesbot:rarity:".
func NewRarityStore(client redis.Cmdable, prefix string) *RarityStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RarityStore{client: client, prefix: prefix}
}

var _ storage.RarityStore = (*RarityStore)(nil)

type rarityDoc struct {
	Collection string         `json:"collection"`
	Ranks      map[string]int `json:"ranks"`
}

func (s *RarityStore) key(collection string) string {
	return s.prefix + collection
}

// Put stores t. A non-positive ttl keeps the key until it is replaced.
func (s *RarityStore) Put(ctx context.Context, t *domain.RarityTable, ttl time.Duration) error {
	if t == nil || t.Collection == "" {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(rarityDoc{Collection: t.Collection, Ranks: t.Ranks})
	if err != nil {
		return fmt.Errorf("encode rarity table: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	start := time.Now()
	err = s.client.Set(ctx, s.key(t.Collection), data, ttl).Err()
	observability.RecordDBQuery("redis", "rarity_put", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("store rarity table %s: %w", t.Collection, err)
	}
	return nil
}

// Get returns the table for collection, or ErrNotFound.
func (s *RarityStore) Get(ctx context.Context, collection string) (*domain.RarityTable, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordDBQuery("redis", "rarity_get", time.Since(start).Seconds(), nil)
		return nil, storage.ErrNotFound
	}
	observability.RecordDBQuery("redis", "rarity_get", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load rarity table %s: %w", collection, err)
	}

	var doc rarityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rarity table %s: %w", collection, err)
	}
	return &domain.RarityTable{Collection: doc.Collection, Ranks: doc.Ranks}, nil
}
