// Package ingestion turns raw marketplace trade feeds into domain.TradeEvent
// streams.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"solana-sales-bot/internal/domain"
)

// Feed is a continuous, non-restartable source of raw trade records.
// The returned channel closes when the feed ends or ctx is cancelled.
type Feed interface {
	Records(ctx context.Context) (<-chan []byte, error)
	Name() string
}

// ErrMalformedRecord is returned for records that cannot become a TradeEvent.
var ErrMalformedRecord = errors.New("malformed trade record")

// TradeRecord is the wire form of a marketplace trade activity.
type TradeRecord struct {
	SolAmount json.Number `json:"solAmount"`
	OrderType string      `json:"orderType"`
	NFTMint   string      `json:"nftMint"`
	Signature string      `json:"signature"`
}

// ParseTradeRecord decodes one raw record. Unknown fields are ignored.
func ParseTradeRecord(raw []byte) (domain.TradeEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rec TradeRecord
	if err := dec.Decode(&rec); err != nil {
		return domain.TradeEvent{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if rec.NFTMint == "" {
		return domain.TradeEvent{}, fmt.Errorf("%w: missing nftMint", ErrMalformedRecord)
	}
	if rec.Signature == "" {
		return domain.TradeEvent{}, fmt.Errorf("%w: missing signature", ErrMalformedRecord)
	}

	amount, err := parseLamports(rec.SolAmount)
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("%w: solAmount: %v", ErrMalformedRecord, err)
	}

	return domain.TradeEvent{
		AssetID:   rec.NFTMint,
		Amount:    amount,
		OrderType: domain.OrderType(rec.OrderType),
		Signature: rec.Signature,
	}, nil
}

// parseLamports accepts integers and, for upstreams that emit floats,
// truncates toward zero. A missing amount parses as zero.
func parseLamports(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("out of range: %s", n)
	}
	return int64(f), nil
}
