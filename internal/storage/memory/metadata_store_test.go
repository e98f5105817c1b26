package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/storage"
)

func TestMetadataStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore()

	m := &domain.NFTMetadata{Mint: "M1", Name: "Degen #1", Image: "https://img/1.png", FetchedAt: 1700000000000}
	require.NoError(t, s.Insert(ctx, m))

	got, err := s.GetByMint(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "Degen #1", got.Name)
	assert.NotZero(t, got.CreatedAt)

	// returned value is a copy
	got.Name = "mutated"
	again, _ := s.GetByMint(ctx, "M1")
	assert.Equal(t, "Degen #1", again.Name)
}

func TestMetadataStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore()

	assert.ErrorIs(t, s.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Insert(ctx, &domain.NFTMetadata{}), storage.ErrInvalidInput)

	require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "M"}))
	assert.ErrorIs(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "M"}), storage.ErrDuplicateKey)

	_, err := s.GetByMint(ctx, "unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMetadataStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(MetadataStoreOptions{MaxEntries: 2})

	require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "A", Name: "a"}))
	require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "B", Name: "b"}))

	// Touch A so B becomes the oldest.
	_, err := s.GetByMint(ctx, "A")
	require.NoError(t, err)

	require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "C", Name: "c"}))
	assert.Equal(t, 2, s.Len())

	_, err = s.GetByMint(ctx, "B")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetByMint(ctx, "A")
	assert.NoError(t, err)

	// An evicted mint can be cached again.
	assert.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "B", Name: "b"}))
}

func TestMetadataStore_ManyMintsStayBounded(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(MetadataStoreOptions{MaxEntries: 1000})

	for i := 0; i < 20_000; i++ {
		require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: fmt.Sprintf("mint-%d", i)}))
	}
	assert.Equal(t, 1000, s.Len())
}

func TestMetadataStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(MetadataStoreOptions{TTL: 50 * time.Millisecond})

	require.NoError(t, s.Insert(ctx, &domain.NFTMetadata{Mint: "M"}))
	_, err := s.GetByMint(ctx, "M")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.GetByMint(ctx, "M")
		return errors.Is(err, storage.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}
