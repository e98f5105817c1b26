// Package pipeline runs trade events through enrichment, filtering,
// rendering and dispatch.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/decision"
	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/notify"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/orchestrator"
	"solana-sales-bot/internal/render"
)

// Outcome is how a pass ended.
type Outcome string

const (
	// OutcomeDispatched means at least one channel send was attempted.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeSkipped means the trade was discarded silently.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDropped means a required lookup failed.
	OutcomeDropped Outcome = "dropped"
	// OutcomeRenderFailed means the banner could not be produced; nothing was sent.
	OutcomeRenderFailed Outcome = "render_failed"
	// OutcomeUnknownError means the pass was aborted by an unexpected failure.
	OutcomeUnknownError Outcome = "unknown_error"
)

// Enricher turns a trade into an enriched event.
type Enricher interface {
	Enrich(ctx context.Context, trade domain.TradeEvent) *orchestrator.Result
}

// Dispatcher announces an enriched event.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *domain.EnrichedEvent, art render.Artifact) notify.DispatchReport
}

// Processor handles one trade.
type Processor interface {
	Process(ctx context.Context, trade domain.TradeEvent) Outcome
}

// PassOptions configures a Pass. A nil Renderer dispatches with the empty
// artifact.
type PassOptions struct {
	Enricher   Enricher
	Renderer   render.Renderer
	Dispatcher Dispatcher
	Logger     *logrus.Entry
}

// Pass processes single trades. It keeps no per-trade state and is safe for
// concurrent use.
type Pass struct {
	enricher   Enricher
	renderer   render.Renderer
	dispatcher Dispatcher
	log        *logrus.Entry
}

var _ Processor = (*Pass)(nil)

// NewPass creates a Pass.
func NewPass(opts PassOptions) *Pass {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("pipeline")
	}
	return &Pass{
		enricher:   opts.Enricher,
		renderer:   opts.Renderer,
		dispatcher: opts.Dispatcher,
		log:        log,
	}
}

// Process runs enrichment → filters → render → dispatch for trade.
func (p *Pass) Process(ctx context.Context, trade domain.TradeEvent) Outcome {
	start := time.Now()
	log := p.log.WithFields(logrus.Fields{
		"pass_id":   uuid.NewString(),
		"signature": trade.Signature,
		"mint":      trade.AssetID,
	})

	outcome := p.process(ctx, log, trade)
	observability.RecordPass(string(outcome), time.Since(start).Seconds())
	return outcome
}

func (p *Pass) process(ctx context.Context, log *logrus.Entry, trade domain.TradeEvent) Outcome {
	res := p.enricher.Enrich(ctx, trade)
	if !res.Enriched() {
		if term, ok := res.Terminal(); ok && term.Status == orchestrator.StatusFailed {
			log.WithField("stages", res.String()).Debug("trade dropped")
			return OutcomeDropped
		}
		return OutcomeSkipped
	}
	event := res.Event

	if !decision.ShouldAnnounce(event) {
		return OutcomeSkipped
	}

	var art render.Artifact
	if p.renderer != nil {
		var err error
		art, err = p.renderer.Render(ctx, render.InputFromEvent(event))
		if err != nil {
			log.WithError(err).Error("failed to generate banner, skipping alerts")
			return OutcomeRenderFailed
		}
	}

	report := p.dispatcher.Dispatch(ctx, event, art)
	log.WithFields(logrus.Fields{
		"price":          event.DisplayPrice,
		"label":          event.Label,
		"secondary_gate": report.Verdict.Secondary,
		"primary_sent":   report.PrimarySent,
		"secondary_sent": report.SecondarySent,
	}).Info("trade announced")
	return OutcomeDispatched
}
