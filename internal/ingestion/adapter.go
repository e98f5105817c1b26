package ingestion

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
)

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// Buffer is the capacity of the event channel. Zero means unbuffered.
	Buffer int
	Logger *logrus.Entry
}

// Adapter parses a Feed into TradeEvents, dropping malformed records.
type Adapter struct {
	buffer int
	log    *logrus.Entry
}

// NewAdapter creates an Adapter.
func NewAdapter(opts AdapterOptions) *Adapter {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("ingestion")
	}
	return &Adapter{buffer: opts.Buffer, log: log}
}

// Events starts the feed and returns parsed events in arrival order.
// The channel closes when the feed's channel closes or ctx is done.
func (a *Adapter) Events(ctx context.Context, feed Feed) (<-chan domain.TradeEvent, error) {
	records, err := feed.Records(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.TradeEvent, a.buffer)
	name := feed.Name()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-records:
				if !ok {
					a.log.WithField("feed", name).Info("feed closed")
					return
				}
				observability.RecordReceived(name)

				event, err := ParseTradeRecord(raw)
				if err != nil {
					reason := "malformed"
					if !errors.Is(err, ErrMalformedRecord) {
						reason = "error"
					}
					observability.RecordDropped(reason)
					a.log.WithError(err).WithField("feed", name).Warn("dropping trade record")
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
