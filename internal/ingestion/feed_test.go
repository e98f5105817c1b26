package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/domain"
)

func TestParseTradeRecord(t *testing.T) {
	raw := []byte(`{"solAmount":5000000000,"orderType":"sell","nftMint":"MintA","signature":"sig1","pool":"ignored","buyer":"x"}`)

	e, err := ParseTradeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeEvent{
		AssetID:   "MintA",
		Amount:    5_000_000_000,
		OrderType: domain.OrderTypeSell,
		Signature: "sig1",
	}, e)
}

func TestParseTradeRecord_FloatAmountTruncates(t *testing.T) {
	e, err := ParseTradeRecord([]byte(`{"solAmount":1.5e9,"orderType":"buy","nftMint":"M","signature":"s"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000_000), e.Amount)
}

func TestParseTradeRecord_MissingAmountIsZero(t *testing.T) {
	e, err := ParseTradeRecord([]byte(`{"orderType":"buy","nftMint":"M","signature":"s"}`))
	require.NoError(t, err)
	assert.Zero(t, e.Amount)
}

func TestParseTradeRecord_PreservesUnknownOrderType(t *testing.T) {
	e, err := ParseTradeRecord([]byte(`{"solAmount":1,"orderType":"swap","nftMint":"M","signature":"s"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderType("swap"), e.OrderType)
	assert.Equal(t, domain.LabelPurchase, e.OrderType.Label())
}

func TestParseTradeRecord_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"solAmount":`,
		"missing mint":      `{"solAmount":1,"orderType":"buy","signature":"s"}`,
		"missing signature": `{"solAmount":1,"orderType":"buy","nftMint":"M"}`,
		"string amount":     `{"solAmount":"lots","orderType":"buy","nftMint":"M","signature":"s"}`,
		"array":             `[1,2,3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTradeRecord([]byte(raw))
			assert.True(t, errors.Is(err, ErrMalformedRecord), "got %v", err)
		})
	}
}
