package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/solana"
	solanastub "solana-sales-bot/internal/solana/stub"
)

type fakeWS struct {
	ch      chan solana.LogNotification
	filters []solana.LogsFilter
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.filters = append(f.filters, filter)
	return f.ch, nil
}

func (f *fakeWS) Close() error { return nil }

func TestWSTradeFeed_EmitsDecodedTrades(t *testing.T) {
	rpc := solanastub.NewRPCClient()
	rpc.AddTransaction(tradeTx("sigBuy", []string{"Program log: Instruction: BuyNftFromPair"}, 20_000_005_000, 7_500_000_000))

	ws := &fakeWS{ch: make(chan solana.LogNotification, 4)}
	ws.ch <- solana.LogNotification{Signature: "noise", Logs: []string{"Program log: Instruction: Deposit"}}
	ws.ch <- solana.LogNotification{Signature: "failed", Logs: []string{"Program log: Instruction: BuyNftFromPair"}, Err: "x"}
	ws.ch <- solana.LogNotification{Signature: "missing", Logs: []string{"Program log: Instruction: SellNftToTokenToNftPair"}}
	ws.ch <- solana.LogNotification{Signature: "sigBuy", Logs: []string{"Program log: Instruction: BuyNftFromPair"}}
	close(ws.ch)

	feed := NewWSTradeFeed(WSTradeFeedOptions{WS: ws, RPC: rpc})
	events, err := NewAdapter(AdapterOptions{}).Events(context.Background(), feed)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, "sigBuy", got[0].Signature)
	assert.Equal(t, "NftMint", got[0].AssetID)
	assert.Equal(t, int64(12_500_000_000), got[0].Amount)

	require.Len(t, ws.filters, 1)
	assert.Equal(t, []string{HadeswapProgramID}, ws.filters[0].Mentions)
	// noise and failed notifications never reach the RPC
	assert.Equal(t, 2, rpc.Calls("getTransaction"))
}

func TestWSTradeFeed_StopsOnCancel(t *testing.T) {
	ws := &fakeWS{ch: make(chan solana.LogNotification)}
	feed := NewWSTradeFeed(WSTradeFeedOptions{WS: ws, RPC: solanastub.NewRPCClient()})

	ctx, cancel := context.WithCancel(context.Background())
	out, err := feed.Records(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("feed did not close")
	}
}
