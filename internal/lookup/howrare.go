package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"solana-sales-bot/internal/domain"
)

// HowRareBaseURL is the public HowRare.is API.
const HowRareBaseURL = "https://api.howrare.is"

// HowRare fetches rank tables for whole collections.
type HowRare struct {
	client *Client
}

// NewHowRare creates the rank table source.
func NewHowRare(client *Client) *HowRare {
	return &HowRare{client: client}
}

type howRareResponse struct {
	Result struct {
		APICode     int    `json:"api_code"`
		APIResponse string `json:"api_response"`
		Data        struct {
			Collection string `json:"collection"`
			Items      []struct {
				Mint string `json:"mint"`
				Rank int    `json:"rank"`
			} `json:"items"`
		} `json:"data"`
	} `json:"result"`
}

// Table returns the ranks of every item in collection.
func (h *HowRare) Table(ctx context.Context, collection string) (*domain.RarityTable, error) {
	var resp howRareResponse
	if err := h.client.GetJSON(ctx, "/v0.1/collections/"+url.PathEscape(collection), &resp); err != nil {
		return nil, fmt.Errorf("howrare %s: %w", collection, err)
	}

	switch resp.Result.APICode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("howrare %s: %w", collection, ErrNotFound)
	default:
		return nil, fmt.Errorf("howrare %s: api_code %d: %s", collection, resp.Result.APICode, resp.Result.APIResponse)
	}

	table := &domain.RarityTable{
		Collection: collection,
		Ranks:      make(map[string]int, len(resp.Result.Data.Items)),
	}
	for _, item := range resp.Result.Data.Items {
		if item.Mint != "" {
			table.Ranks[item.Mint] = item.Rank
		}
	}
	return table, nil
}
