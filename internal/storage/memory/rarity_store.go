package memory

import (
	"context"
	"sync"
	"time"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/storage"
)

type rarityEntry struct {
	table     *domain.RarityTable
	expiresAt time.Time // zero means no expiry
}

// RarityStore is an in-memory storage.RarityStore with lazy expiry.
type RarityStore struct {
	mu      sync.RWMutex
	entries map[string]rarityEntry
	now     func() time.Time
}

// NewRarityStore creates an empty store.
func NewRarityStore() *RarityStore {
	return &RarityStore{entries: make(map[string]rarityEntry), now: time.Now}
}

// Put stores a copy of t. A non-positive ttl never expires.
func (s *RarityStore) Put(_ context.Context, t *domain.RarityTable, ttl time.Duration) error {
	if t == nil || t.Collection == "" {
		return storage.ErrInvalidInput
	}

	e := rarityEntry{table: copyTable(t)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[t.Collection] = e
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the table, or ErrNotFound when absent or expired.
func (s *RarityStore) Get(_ context.Context, collection string) (*domain.RarityTable, error) {
	s.mu.RLock()
	e, ok := s.entries[collection]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	if !e.expired(s.now()) {
		return copyTable(e.table), nil
	}

	// A Put may have replaced the entry since the read lock was released.
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok = s.entries[collection]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.expired(s.now()) {
		delete(s.entries, collection)
		return nil, storage.ErrNotFound
	}
	return copyTable(e.table), nil
}

func (e rarityEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func copyTable(t *domain.RarityTable) *domain.RarityTable {
	ranks := make(map[string]int, len(t.Ranks))
	for k, v := range t.Ranks {
		ranks[k] = v
	}
	return &domain.RarityTable{Collection: t.Collection, Ranks: ranks}
}

var _ storage.RarityStore = (*RarityStore)(nil)
