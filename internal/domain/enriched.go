package domain

// MarketplaceData is what the marketplace lookup knows about an asset.
type MarketplaceData struct {
	CollectionID string  // marketplace collection symbol
	FloorPrice   float64 // collection floor, as reported by the marketplace lookup
}

// NFTMetadata is the display metadata of an asset.
// Corresponds to nft_metadata table in PostgreSQL.
type NFTMetadata struct {
	Mint      string // PK
	Name      string // display name, may be empty when the asset has none
	Symbol    string
	URI       string // off-chain JSON locator
	Image     string // image locator resolved from the off-chain JSON
	FetchedAt int64  // when metadata was fetched (ms)
	CreatedAt int64  // record creation timestamp (ms)
}

// Rarity is the rank of an asset within its collection.
type Rarity struct {
	Rank           int
	CollectionSize int
}

// RarityTable maps mint addresses to ranks for one collection.
type RarityTable struct {
	Collection string
	Ranks      map[string]int
}

// Lookup returns the rarity of mint in the table.
func (t *RarityTable) Lookup(mint string) (*Rarity, bool) {
	if t == nil {
		return nil, false
	}
	rank, ok := t.Ranks[mint]
	if !ok || rank <= 0 {
		return nil, false
	}
	return &Rarity{Rank: rank, CollectionSize: len(t.Ranks)}, true
}

// EnrichedEvent is a TradeEvent plus everything gathered for announcing it.
// Built by a single pipeline pass and discarded after dispatch.
type EnrichedEvent struct {
	Trade TradeEvent

	DisplayPrice float64 // SOL, floored to 2 decimals
	FiatPrice    float64 // USD, floored to 2 decimals
	Label        string  // "Sale" | "Purchase"

	CollectionID string
	FloorPrice   float64

	Name  string
	Image string

	Rarity *Rarity // nil when the rarity lookup failed or the asset is unranked
}

// Displayable reports whether the event carries the fields every announcement needs.
func (e *EnrichedEvent) Displayable() bool {
	return e != nil && e.Name != "" && e.Image != ""
}
