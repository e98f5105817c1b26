package lookup

import (
	"context"
	"fmt"

	"solana-sales-bot/internal/domain"
)

// TableSource returns a collection's rank table.
type TableSource interface {
	Table(ctx context.Context, collection string) (*domain.RarityTable, error)
}

// RarityScorer answers per-asset rarity from collection tables.
type RarityScorer struct {
	tables TableSource
}

// NewRarityScorer creates a scorer over tables.
func NewRarityScorer(tables TableSource) *RarityScorer {
	return &RarityScorer{tables: tables}
}

// Rarity returns the rank of mint in collection and the collection size.
// ErrNotRanked is returned when the collection has no rank for mint.
func (s *RarityScorer) Rarity(ctx context.Context, mint, collection string) (domain.Rarity, error) {
	if collection == "" {
		return domain.Rarity{}, fmt.Errorf("rarity %s: no collection: %w", mint, ErrNotRanked)
	}
	table, err := s.tables.Table(ctx, collection)
	if err != nil {
		return domain.Rarity{}, err
	}
	r, ok := table.Lookup(mint)
	if !ok {
		return domain.Rarity{}, fmt.Errorf("rarity %s in %s: %w", mint, collection, ErrNotRanked)
	}
	return *r, nil
}
