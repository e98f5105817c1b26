// Package orchestrator enriches trade events from the external lookups.
// Flow: price → (rate ∥ marketplace) → (metadata ∥ rarity) → validate
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/observability"
)

// PriceOracle returns the SOL/USD rate.
type PriceOracle interface {
	Rate(ctx context.Context) (float64, error)
}

// MarketplaceLookup resolves an asset's collection and floor price.
type MarketplaceLookup interface {
	Marketplace(ctx context.Context, mint string) (domain.MarketplaceData, error)
}

// MetadataLookup resolves an asset's display metadata.
type MetadataLookup interface {
	Metadata(ctx context.Context, mint string) (domain.NFTMetadata, error)
}

// RarityLookup ranks an asset within its collection.
type RarityLookup interface {
	Rarity(ctx context.Context, mint, collection string) (domain.Rarity, error)
}

// Orchestrator runs the enrichment stages for one trade at a time. It holds
// no per-pass state and is safe for concurrent use.
type Orchestrator struct {
	oracle      PriceOracle
	marketplace MarketplaceLookup
	metadata    MetadataLookup
	rarity      RarityLookup
	log         *logrus.Entry
}

// Options for creating Orchestrator.
type Options struct {
	Oracle      PriceOracle
	Marketplace MarketplaceLookup
	Metadata    MetadataLookup
	Rarity      RarityLookup
	Logger      *logrus.Entry
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("orchestrator")
	}
	return &Orchestrator{
		oracle:      opts.Oracle,
		marketplace: opts.Marketplace,
		metadata:    opts.Metadata,
		rarity:      opts.Rarity,
		log:         log,
	}
}

// Enrich runs every stage for trade. Lookup errors end the pass and are
// reported in the Result; panics raised by a lookup are re-raised on the
// calling goroutine.
func (o *Orchestrator) Enrich(ctx context.Context, trade domain.TradeEvent) *Result {
	res := &Result{}
	log := o.log.WithFields(logrus.Fields{
		"signature": trade.Signature,
		"mint":      trade.AssetID,
	})

	display := DisplayPrice(trade.Amount)
	if display.IsZero() {
		res.record(StagePrice, StatusSkipped, nil)
		return res
	}
	res.record(StagePrice, StatusOK, nil)

	// Stage 2: rate and marketplace.
	var (
		rate   float64
		market domain.MarketplaceData
		errs   [2]error
	)
	var lookups stageGroup
	lookups.Go(func() error {
		var err error
		rate, err = o.oracle.Rate(ctx)
		errs[0] = err
		return err
	})
	lookups.Go(func() error {
		var err error
		market, err = o.marketplace.Marketplace(ctx, trade.AssetID)
		errs[1] = err
		return err
	})
	lookups.Wait()

	failed := false
	if errs[0] != nil {
		res.record(StageRate, StatusFailed, errs[0])
		log.WithError(errs[0]).Error("failed to fetch SOL/USD rate")
		failed = true
	} else {
		res.record(StageRate, StatusOK, nil)
	}
	if errs[1] != nil {
		res.record(StageMarketplace, StatusFailed, errs[1])
		log.WithError(errs[1]).Error("failed to fetch marketplace data")
		failed = true
	} else {
		res.record(StageMarketplace, StatusOK, nil)
	}
	if failed {
		return res
	}

	// Stage 3: metadata and rarity.
	var (
		meta      domain.NFTMetadata
		rarity    domain.Rarity
		metaErr   error
		rarityErr error
	)
	var details stageGroup
	details.Go(func() error {
		meta, metaErr = o.metadata.Metadata(ctx, trade.AssetID)
		return metaErr
	})
	details.Go(func() error {
		rarity, rarityErr = o.rarity.Rarity(ctx, trade.AssetID, market.CollectionID)
		return rarityErr
	})
	details.Wait()

	if metaErr != nil {
		res.record(StageMetadata, StatusFailed, metaErr)
		log.WithError(metaErr).Error("failed to fetch NFT metadata")
		return res
	}
	res.record(StageMetadata, StatusOK, nil)

	event := &domain.EnrichedEvent{
		Trade:        trade,
		DisplayPrice: display.InexactFloat64(),
		FiatPrice:    FiatPrice(rate, display).InexactFloat64(),
		Label:        trade.OrderType.Label(),
		CollectionID: market.CollectionID,
		FloorPrice:   market.FloorPrice,
		Name:         meta.Name,
		Image:        meta.Image,
	}

	if rarityErr != nil {
		res.record(StageRarity, StatusDegraded, rarityErr)
		log.WithError(rarityErr).WithField("collection", market.CollectionID).Warn("rarity unavailable, continuing without it")
	} else {
		r := rarity
		event.Rarity = &r
		res.record(StageRarity, StatusOK, nil)
	}

	if !event.Displayable() {
		res.record(StageValidate, StatusSkipped, fmt.Errorf("name=%q image=%q", event.Name, event.Image))
		return res
	}
	res.record(StageValidate, StatusOK, nil)

	res.Event = event
	return res
}

func (r *Result) record(stage Stage, status Status, err error) {
	r.Stages = append(r.Stages, StageResult{Stage: stage, Status: status, Err: err})
	observability.RecordStage(string(stage), string(status))
}

// stageGroup runs lookups concurrently. A panic in a lookup is captured and
// re-raised from Wait so it unwinds the caller's stack.
type stageGroup struct {
	g        errgroup.Group
	mu       sync.Mutex
	panicked any
}

func (s *stageGroup) Go(fn func() error) {
	s.g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				s.mu.Lock()
				if s.panicked == nil {
					s.panicked = p
				}
				s.mu.Unlock()
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn()
	})
}

func (s *stageGroup) Wait() {
	_ = s.g.Wait()
	s.mu.Lock()
	p := s.panicked
	s.mu.Unlock()
	if p != nil {
		panic(p)
	}
}
