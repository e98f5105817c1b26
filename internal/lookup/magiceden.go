package lookup

import (
	"context"
	"fmt"
	"net/url"

	"solana-sales-bot/internal/domain"
)

// MagicEdenBaseURL is the public Magic Eden API.
const MagicEdenBaseURL = "https://api-mainnet.magiceden.dev"

// MagicEden resolves an NFT's collection and that collection's floor price.
type MagicEden struct {
	client *Client
}

// NewMagicEden creates the marketplace lookup.
func NewMagicEden(client *Client) *MagicEden {
	return &MagicEden{client: client}
}

type meToken struct {
	MintAddress string `json:"mintAddress"`
	Collection  string `json:"collection"`
}

type meCollectionStats struct {
	Symbol     string  `json:"symbol"`
	FloorPrice float64 `json:"floorPrice"` // lamports
}

// Marketplace returns the collection symbol and its floor price in SOL.
func (m *MagicEden) Marketplace(ctx context.Context, mint string) (domain.MarketplaceData, error) {
	var token meToken
	if err := m.client.GetJSON(ctx, "/v2/tokens/"+url.PathEscape(mint), &token); err != nil {
		return domain.MarketplaceData{}, fmt.Errorf("magiceden token %s: %w", mint, err)
	}
	if token.Collection == "" {
		return domain.MarketplaceData{}, fmt.Errorf("magiceden token %s has no collection: %w", mint, ErrNotFound)
	}

	var stats meCollectionStats
	if err := m.client.GetJSON(ctx, "/v2/collections/"+url.PathEscape(token.Collection)+"/stats", &stats); err != nil {
		return domain.MarketplaceData{}, fmt.Errorf("magiceden stats %s: %w", token.Collection, err)
	}

	return domain.MarketplaceData{
		CollectionID: token.Collection,
		FloorPrice:   stats.FloorPrice / float64(domain.LamportsPerSOL),
	}, nil
}
