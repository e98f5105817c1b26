package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sales-bot/internal/decision"
	"solana-sales-bot/internal/domain"
	"solana-sales-bot/internal/ingestion"
	feedstub "solana-sales-bot/internal/ingestion/stub"
	"solana-sales-bot/internal/notify"
	"solana-sales-bot/internal/orchestrator"
	lookupstub "solana-sales-bot/internal/orchestrator/stub"
	"solana-sales-bot/internal/render"
)

type recordingSender struct {
	name string
	mu   sync.Mutex
	sigs []string
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) SendPrimary(_ context.Context, p notify.PrimaryPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, p.Signature)
	return nil
}

func (s *recordingSender) SendSecondary(_ context.Context, p notify.SecondaryPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, p.Signature)
	return nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sigs...)
}

type fakeRenderer struct {
	calls atomic.Int32
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, in render.RenderInput) (render.Artifact, error) {
	r.calls.Add(1)
	if r.err != nil {
		return render.Artifact{}, r.err
	}
	return render.Artifact{ID: in.Signature, Data: []byte("png")}, nil
}

type harness struct {
	lookups   *lookupstub.Lookups
	renderer  *fakeRenderer
	primary   *recordingSender
	secondary *recordingSender
	hook      *test.Hook
	log       *logrus.Entry
}

func newHarness() *harness {
	logger, hook := test.NewNullLogger()
	return &harness{
		lookups:   lookupstub.NewLookups(),
		renderer:  &fakeRenderer{},
		primary:   &recordingSender{name: "discord"},
		secondary: &recordingSender{name: "twitter"},
		hook:      hook,
		log:       logrus.NewEntry(logger),
	}
}

func (h *harness) pass() *Pass {
	return NewPass(PassOptions{
		Enricher: orchestrator.New(orchestrator.Options{
			Oracle:      h.lookups,
			Marketplace: h.lookups,
			Metadata:    h.lookups,
			Rarity:      h.lookups,
			Logger:      h.log,
		}),
		Renderer: h.renderer,
		Dispatcher: notify.NewDispatcher(notify.DispatcherOptions{
			Primary:   h.primary,
			Secondary: h.secondary,
			Router:    decision.NewDefaultPolicy(),
			Logger:    h.log,
		}),
		Logger: h.log,
	})
}

func (h *harness) supervisor(records ...string) *Supervisor {
	return NewSupervisor(SupervisorOptions{
		Feed:      feedstub.NewStringFeed(records...),
		Adapter:   ingestion.NewAdapter(ingestion.AdapterOptions{Logger: h.log}),
		Processor: h.pass(),
		Workers:   3,
		QueueSize: 4,
		Logger:    h.log,
	})
}

func record(sig, mint string, lamports int64, order string) string {
	return fmt.Sprintf(`{"solAmount":%d,"orderType":%q,"nftMint":%q,"signature":%q}`, lamports, order, mint, sig)
}

func (h *harness) messages() []string {
	var msgs []string
	for _, e := range h.hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestPass_ProcessRoutesByPrice(t *testing.T) {
	h := newHarness()
	p := h.pass()

	small := domain.TradeEvent{AssetID: "M1", Amount: 5_000_000_000, OrderType: domain.OrderTypeSell, Signature: "small"}
	big := domain.TradeEvent{AssetID: "M2", Amount: 15_000_000_000, OrderType: domain.OrderTypeBuy, Signature: "big"}

	assert.Equal(t, OutcomeDispatched, p.Process(context.Background(), small))
	assert.Equal(t, OutcomeDispatched, p.Process(context.Background(), big))

	assert.ElementsMatch(t, []string{"small", "big"}, h.primary.sent())
	assert.Equal(t, []string{"big"}, h.secondary.sent())
	assert.Equal(t, int32(2), h.renderer.calls.Load())
}

func TestPass_ZeroPriceNoLookups(t *testing.T) {
	h := newHarness()
	out := h.pass().Process(context.Background(), domain.TradeEvent{AssetID: "M", Amount: 0, Signature: "dust"})

	assert.Equal(t, OutcomeSkipped, out)
	assert.Zero(t, h.lookups.TotalCalls())
	assert.Zero(t, h.renderer.calls.Load())
	assert.Empty(t, h.primary.sent())
}

func TestPass_RenderFailureSkipsBothChannels(t *testing.T) {
	h := newHarness()
	h.renderer.err = errors.New("image 404")

	out := h.pass().Process(context.Background(), domain.TradeEvent{AssetID: "M", Amount: 50_000_000_000, Signature: "sig"})

	assert.Equal(t, OutcomeRenderFailed, out)
	assert.Empty(t, h.primary.sent())
	assert.Empty(t, h.secondary.sent())
	assert.Contains(t, h.messages(), "failed to generate banner, skipping alerts")
}

func TestPass_MarketplaceFailureDrops(t *testing.T) {
	h := newHarness()
	h.lookups.MarketplaceFn = func(context.Context, string) (domain.MarketplaceData, error) {
		return domain.MarketplaceData{}, errors.New("magiceden 500")
	}

	out := h.pass().Process(context.Background(), domain.TradeEvent{AssetID: "M", Amount: 50_000_000_000, Signature: "sig"})
	assert.Equal(t, OutcomeDropped, out)
	assert.Zero(t, h.lookups.Calls("metadata"))
	assert.Zero(t, h.lookups.Calls("rarity"))
	assert.Empty(t, h.primary.sent())
}

func TestPass_NilRendererUsesEmptyArtifact(t *testing.T) {
	h := newHarness()
	p := h.pass()
	p.renderer = nil

	out := p.Process(context.Background(), domain.TradeEvent{AssetID: "M", Amount: 2_000_000_000, Signature: "sig"})
	assert.Equal(t, OutcomeDispatched, out)
	assert.Equal(t, []string{"sig"}, h.primary.sent())
}

func TestSupervisor_RunProcessesFeed(t *testing.T) {
	h := newHarness()
	s := h.supervisor(
		record("s1", "M1", 5_000_000_000, "sell"),
		`{"orderType":"buy"`,
		record("s2", "M2", 0, "buy"),
		record("s3", "M3", 12_000_000_000, "buy"),
	)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Received)
	assert.Equal(t, int64(2), stats.Outcomes[OutcomeDispatched])
	assert.Equal(t, int64(1), stats.Outcomes[OutcomeSkipped])
	assert.ElementsMatch(t, []string{"s1", "s3"}, h.primary.sent())
	assert.Equal(t, []string{"s3"}, h.secondary.sent())
}

func TestSupervisor_SurvivesPanickingLookup(t *testing.T) {
	h := newHarness()
	h.lookups.MetadataFn = func(_ context.Context, mint string) (domain.NFTMetadata, error) {
		if mint == "BOOM" {
			var m map[string]string
			m["x"] = "assignment to nil map"
		}
		return domain.NFTMetadata{Mint: mint, Name: "ok", Image: "https://img/ok.png"}, nil
	}

	s := h.supervisor(
		record("s1", "M1", 1_000_000_000, "buy"),
		record("s2", "BOOM", 1_000_000_000, "buy"),
		record("s3", "M3", 1_000_000_000, "buy"),
	)

	stats, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Outcomes[OutcomeUnknownError])
	assert.Equal(t, int64(2), stats.Outcomes[OutcomeDispatched])
	assert.ElementsMatch(t, []string{"s1", "s3"}, h.primary.sent())

	var found bool
	for _, e := range h.hook.AllEntries() {
		if e.Message == "unknown error occurred" {
			found = true
			assert.Equal(t, "s2", e.Data["signature"])
			assert.Equal(t, logrus.ErrorLevel, e.Level)
		}
	}
	assert.True(t, found, "unknown error not logged")
}

func TestSupervisor_FeedStartFailure(t *testing.T) {
	h := newHarness()
	s := NewSupervisor(SupervisorOptions{
		Feed:      feedstub.NewFailingFeed(errors.New("dial tcp: refused")),
		Processor: h.pass(),
		Logger:    h.log,
	})

	_, err := s.Run(context.Background())
	assert.ErrorContains(t, err, "refused")
}

func TestSupervisor_CancelledContext(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.supervisor(record("s1", "M1", 1_000_000_000, "buy")).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
