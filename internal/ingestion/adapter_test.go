package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/ingestion/stub"
)

func collect(t *testing.T, ch <-chan domain.TradeEvent) []domain.TradeEvent {
	t.Helper()
	var out []domain.TradeEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			t.Fatal("timed out waiting for adapter to close")
			return nil
		}
	}
}

func TestAdapter_DropsMalformedAndPreservesOrder(t *testing.T) {
	logger, hook := test.NewNullLogger()
	feed := stub.NewStringFeed(
		`{"solAmount":1,"orderType":"buy","nftMint":"A","signature":"s1"}`,
		`garbage`,
		`{"solAmount":2,"orderType":"sell","nftMint":"B","signature":"s2"}`,
		`{"solAmount":3,"orderType":"buy","signature":"s3"}`,
		`{"solAmount":4,"orderType":"sell","nftMint":"D","signature":"s4"}`,
	)

	a := NewAdapter(AdapterOptions{Logger: logrus.NewEntry(logger)})
	ch, err := a.Events(context.Background(), feed)
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 3)
	assert.Equal(t, "s1", events[0].Signature)
	assert.Equal(t, "s2", events[1].Signature)
	assert.Equal(t, "s4", events[2].Signature)

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestAdapter_FeedError(t *testing.T) {
	a := NewAdapter(AdapterOptions{})
	_, err := a.Events(context.Background(), stub.NewFailingFeed(errors.New("boom")))
	assert.EqualError(t, err, "boom")
}

func TestAdapter_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	records := make(chan []byte)
	a := NewAdapter(AdapterOptions{})

	ch, err := a.Events(ctx, chanFeed(records))
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop on cancel")
	}
}

type chanFeed chan []byte

func (c chanFeed) Name() string { return "chan" }

func (c chanFeed) Records(context.Context) (<-chan []byte, error) { return c, nil }
