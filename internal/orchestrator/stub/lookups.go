// Package stub provides scriptable enrichment lookups for tests.
package stub

import (
	"context"
	"sync"

	"solana-sales-bot/internal/domain"
)

// Lookups implements every orchestrator lookup interface. Unset funcs return
// fixed happy-path values. Calls are counted per method.
type Lookups struct {
	RateFn        func(ctx context.Context) (float64, error)
	MarketplaceFn func(ctx context.Context, mint string) (domain.MarketplaceData, error)
	MetadataFn    func(ctx context.Context, mint string) (domain.NFTMetadata, error)
	RarityFn      func(ctx context.Context, mint, collection string) (domain.Rarity, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewLookups returns lookups that succeed with a 20 USD rate, a "degods"
// collection and displayable metadata.
func NewLookups() *Lookups {
	return &Lookups{calls: make(map[string]int)}
}

func (l *Lookups) hit(method string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = make(map[string]int)
	}
	l.calls[method]++
}

// Calls returns how many times method ("rate", "marketplace", "metadata",
// "rarity") was invoked.
func (l *Lookups) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// TotalCalls sums calls across all methods.
func (l *Lookups) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

// Rate returns RateFn or a fixed 20 USD per SOL.
func (l *Lookups) Rate(ctx context.Context) (float64, error) {
	l.hit("rate")
	if l.RateFn != nil {
		return l.RateFn(ctx)
	}
	return 20.0, nil
}

// Marketplace returns MarketplaceFn or a degods listing with a 245.5 SOL floor.
func (l *Lookups) Marketplace(ctx context.Context, mint string) (domain.MarketplaceData, error) {
	l.hit("marketplace")
	if l.MarketplaceFn != nil {
		return l.MarketplaceFn(ctx, mint)
	}
	return domain.MarketplaceData{CollectionID: "degods", FloorPrice: 245.5}, nil
}

// Metadata returns MetadataFn or a named metadata record for mint.
func (l *Lookups) Metadata(ctx context.Context, mint string) (domain.NFTMetadata, error) {
	l.hit("metadata")
	if l.MetadataFn != nil {
		return l.MetadataFn(ctx, mint)
	}
	return domain.NFTMetadata{Mint: mint, Name: "DeGod #1234", Image: "https://img.example/1234.png"}, nil
}

// Rarity returns RarityFn or rank 42 of 10000.
func (l *Lookups) Rarity(ctx context.Context, mint, collection string) (domain.Rarity, error) {
	l.hit("rarity")
	if l.RarityFn != nil {
		return l.RarityFn(ctx, mint, collection)
	}
	return domain.Rarity{Rank: 42, CollectionSize: 10000}, nil
}
