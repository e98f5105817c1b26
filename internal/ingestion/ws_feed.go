package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/solana"
)

// WSTradeFeedOptions configures a WSTradeFeed.
type WSTradeFeedOptions struct {
	WS       solana.WSClient
	RPC      solana.RPCClient
	Programs []string // defaults to HadeswapProgramID
	Decoder  *TradeDecoder
	Buffer   int
	Logger   *logrus.Entry
}

// WSTradeFeed subscribes to marketplace program logs, fetches each matching
// transaction and emits the decoded trade as a wire record.
type WSTradeFeed struct {
	ws       solana.WSClient
	rpc      solana.RPCClient
	programs []string
	decoder  *TradeDecoder
	buffer   int
	log      *logrus.Entry
}

// NewWSTradeFeed creates a live feed.
func NewWSTradeFeed(opts WSTradeFeedOptions) *WSTradeFeed {
	programs := opts.Programs
	if len(programs) == 0 {
		programs = []string{HadeswapProgramID}
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = NewTradeDecoder()
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 100
	}
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("ws-feed")
	}
	return &WSTradeFeed{
		ws:       opts.WS,
		rpc:      opts.RPC,
		programs: programs,
		decoder:  decoder,
		buffer:   buffer,
		log:      log,
	}
}

// Name implements Feed.
func (f *WSTradeFeed) Name() string { return "ws" }

// Records implements Feed. One subscription is opened per program since some
// providers accept a single mention per filter.
func (f *WSTradeFeed) Records(ctx context.Context) (<-chan []byte, error) {
	var subs []<-chan solana.LogNotification
	for _, program := range f.programs {
		ch, err := f.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{program}})
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", program, err)
		}
		subs = append(subs, ch)
	}

	out := make(chan []byte, f.buffer)
	merged := make(chan solana.LogNotification, f.buffer)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for _, ch := range subs {
		wg.Add(1)
		go func(ch <-chan solana.LogNotification) {
			defer wg.Done()
			for n := range ch {
				select {
				case merged <- n:
				case <-done:
					return
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	go func() {
		defer close(out)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-merged:
				if !ok {
					f.log.Info("all log subscriptions closed")
					return
				}
				observability.RecordWSNotification()
				f.handle(ctx, out, n)
			}
		}
	}()

	return out, nil
}

func (f *WSTradeFeed) handle(ctx context.Context, out chan<- []byte, n solana.LogNotification) {
	if n.Failed() {
		return
	}
	if _, ok := f.decoder.Direction(n.Logs); !ok {
		return
	}

	log := f.log.WithFields(logrus.Fields{"signature": n.Signature, "slot": n.Slot})

	start := time.Now()
	tx, err := f.rpc.GetTransaction(ctx, n.Signature)
	observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
	if err != nil {
		observability.RecordDropped("rpc")
		log.WithError(err).Warn("fetch trade transaction failed")
		return
	}

	rec, ok := f.decoder.Decode(tx)
	if !ok {
		log.Debug("transaction carries no nft trade")
		return
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		log.WithError(err).Error("encode trade record")
		return
	}

	log.WithFields(logrus.Fields{"mint": rec.NFTMint, "order_type": rec.OrderType}).Debug("trade decoded")
	select {
	case out <- raw:
	case <-ctx.Done():
	}
}

func jsonInt(v int64) json.Number {
	return json.Number(strconv.FormatInt(v, 10))
}
