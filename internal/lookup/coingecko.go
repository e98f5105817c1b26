package lookup

import (
	"context"
	"fmt"
	"net/url"
)

// CoinGecko API defaults.
const (
	CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	coinGeckoSOL     = "solana"
	coinGeckoUSD     = "usd"
)

// CoinGecko reads the SOL/USD rate from the simple price endpoint.
type CoinGecko struct {
	client *Client
}

// NewCoinGecko creates the oracle on top of client.
func NewCoinGecko(client *Client) *CoinGecko {
	return &CoinGecko{client: client}
}

// Rate returns the current USD price of one SOL.
func (c *CoinGecko) Rate(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", coinGeckoSOL)
	q.Set("vs_currencies", coinGeckoUSD)

	var resp map[string]map[string]float64
	if err := c.client.GetJSON(ctx, "/simple/price?"+q.Encode(), &resp); err != nil {
		return 0, err
	}

	price, ok := resp[coinGeckoSOL][coinGeckoUSD]
	if !ok {
		return 0, fmt.Errorf("coingecko: %s/%s missing from response", coinGeckoSOL, coinGeckoUSD)
	}
	if price <= 0 {
		return 0, fmt.Errorf("coingecko: non-positive rate %v", price)
	}
	return price, nil
}
