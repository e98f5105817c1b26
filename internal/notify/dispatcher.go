package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/decision"
	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
	"solana-sales-bot/internal/render"
)

// PrimarySender delivers to the always-on channel.
type PrimarySender interface {
	Name() string
	SendPrimary(ctx context.Context, p PrimaryPayload) error
}

// SecondarySender delivers to the gated media channel.
type SecondarySender interface {
	Name() string
	SendSecondary(ctx context.Context, p SecondaryPayload) error
}

// Router decides which channels announce an event.
type Router interface {
	Evaluate(e *domain.EnrichedEvent) decision.Verdict
}

// DispatchReport is what happened on each channel for one event.
type DispatchReport struct {
	PrimaryAttempted   bool
	PrimarySent        bool
	SecondaryAttempted bool
	SecondarySent      bool
	PrimaryErr         error
	SecondaryErr       error
	Verdict            decision.Verdict
}

// Dispatcher fans an enriched event out to both channels. Channel failures,
// panics included, are contained per channel.
type Dispatcher struct {
	primary   PrimarySender
	secondary SecondarySender
	router    Router
	log       *logrus.Entry
	now       func() time.Time
}

// DispatcherOptions configures a Dispatcher. A nil sender disables its
// channel; a nil Router sends every event to the primary channel only.
type DispatcherOptions struct {
	Primary   PrimarySender
	Secondary SecondarySender
	Router    Router
	Logger    *logrus.Entry
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("notify")
	}
	return &Dispatcher{
		primary:   opts.Primary,
		secondary: opts.Secondary,
		router:    opts.Router,
		log:       log,
		now:       time.Now,
	}
}

// Dispatch sends e to the channels the router selects. Sends run
// concurrently and each is attempted at most once. The primary payload
// carries no artifact URL.
func (d *Dispatcher) Dispatch(ctx context.Context, e *domain.EnrichedEvent, art render.Artifact) DispatchReport {
	var (
		report DispatchReport
		wg     sync.WaitGroup
	)
	log := d.log.WithFields(logrus.Fields{
		"signature": e.Trade.Signature,
		"mint":      e.Trade.AssetID,
	})

	report.Verdict = decision.Verdict{Primary: true}
	if d.router != nil {
		report.Verdict = d.router.Evaluate(e)
	}
	for _, c := range report.Verdict.Criteria {
		log.WithFields(logrus.Fields{
			"criterion": c.Name,
			"threshold": c.Threshold,
			"actual":    c.Actual,
			"pass":      c.Pass,
		}).Debug("routing criterion")
	}

	if d.primary != nil && report.Verdict.Primary {
		report.PrimaryAttempted = true
		payload := NewPrimaryPayload(e, "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.PrimaryErr = d.guard(log, d.primary.Name(), func() error {
				return d.primary.SendPrimary(ctx, payload)
			})
			report.PrimarySent = report.PrimaryErr == nil
		}()
	}

	if d.secondary != nil && report.Verdict.Secondary {
		report.SecondaryAttempted = true
		payload := NewSecondaryPayload(e, art)
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.SecondaryErr = d.guard(log, d.secondary.Name(), func() error {
				return d.secondary.SendSecondary(ctx, payload)
			})
			report.SecondarySent = report.SecondaryErr == nil
		}()
	}

	wg.Wait()
	return report
}

// guard runs send, converting a panic into an error, and logs and counts
// the outcome for channel.
func (d *Dispatcher) guard(log *logrus.Entry, channel string, send func() error) (err error) {
	status := "ok"
	defer func() {
		if p := recover(); p != nil {
			status = "panic"
			err = fmt.Errorf("%s sender panicked: %v", channel, p)
			log.WithField("stack", string(debug.Stack())).Debug("sender panic stack")
		}
		if err != nil {
			if status == "ok" {
				status = "error"
			}
			log.WithError(err).WithField("channel", channel).Errorf("failed to send alert to %s", channel)
		} else {
			observability.RecordDispatchSuccess(d.now().Unix())
		}
		observability.RecordSend(channel, status)
	}()
	return send()
}
