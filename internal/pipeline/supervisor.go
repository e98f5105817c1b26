package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/ingestion"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
)

// Defaults for SupervisorOptions.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Feed      ingestion.Feed
	Adapter   *ingestion.Adapter
	Processor Processor
	Workers   int
	QueueSize int
	Logger    *logrus.Entry
}

// Supervisor feeds trades from a Feed through a bounded queue to a pool of
// workers. A failing pass never stops the stream.
type Supervisor struct {
	feed      ingestion.Feed
	adapter   *ingestion.Adapter
	processor Processor
	workers   int
	queueSize int
	log       *logrus.Entry
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("supervisor")
	}
	adapter := opts.Adapter
	if adapter == nil {
		adapter = ingestion.NewAdapter(ingestion.AdapterOptions{Logger: log})
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Supervisor{
		feed:      opts.Feed,
		adapter:   adapter,
		processor: opts.Processor,
		workers:   workers,
		queueSize: queueSize,
		log:       log,
	}
}

// Stats counts pass outcomes of one Run.
type Stats struct {
	Received int64
	Outcomes map[Outcome]int64
}

type counters struct {
	received atomic.Int64
	mu       sync.Mutex
	outcomes map[Outcome]int64
}

func (c *counters) add(o Outcome) {
	c.mu.Lock()
	c.outcomes[o]++
	c.mu.Unlock()
}

// Run consumes the feed until it ends or ctx is cancelled, then waits for
// queued trades to finish. It returns an error only when the feed cannot
// start or ctx was cancelled.
func (s *Supervisor) Run(ctx context.Context) (Stats, error) {
	events, err := s.adapter.Events(ctx, s.feed)
	if err != nil {
		return Stats{}, fmt.Errorf("start feed %s: %w", s.feed.Name(), err)
	}

	c := &counters{outcomes: make(map[Outcome]int64)}
	queue := make(chan domain.TradeEvent, s.queueSize)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trade := range queue {
				observability.SetQueueDepth(len(queue))
				c.add(s.safeProcess(ctx, trade))
			}
		}()
	}

	s.log.WithFields(logrus.Fields{
		"feed":       s.feed.Name(),
		"workers":    s.workers,
		"queue_size": s.queueSize,
	}).Info("supervisor started")

	for trade := range events {
		c.received.Add(1)
		queue <- trade
		observability.SetQueueDepth(len(queue))
	}
	close(queue)
	wg.Wait()
	observability.SetQueueDepth(0)

	c.mu.Lock()
	stats := Stats{Received: c.received.Load(), Outcomes: c.outcomes}
	c.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"received": stats.Received,
		"outcomes": stats.Outcomes,
	}).Info("supervisor stopped")

	return stats, ctx.Err()
}

// safeProcess is the per-trade failure boundary.
func (s *Supervisor) safeProcess(ctx context.Context, trade domain.TradeEvent) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordUnknownError()
			observability.RecordPass(string(OutcomeUnknownError), 0)
			s.log.WithFields(logrus.Fields{
				"signature": trade.Signature,
				"mint":      trade.AssetID,
				"panic":     fmt.Sprint(r),
				"stack":     string(debug.Stack()),
			}).Error("unknown error occurred")
			outcome = OutcomeUnknownError
		}
	}()
	return s.processor.Process(ctx, trade)
}
