// Package app assembles the bot from a Config: transports, lookups with their
// caches, the enrichment pipeline, the channel senders and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-sales-bot/internal/config"
	"solana-sales-bot/internal/decision"
	"solana-sales-bot/internal/ingestion"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/lookup"
	"solana-sales-bot/internal/notify"
	"solana-sales-bot/internal/orchestrator"
	"solana-sales-bot/internal/pipeline"
	"solana-sales-bot/internal/render"
	"solana-sales-bot/internal/server"
	"solana-sales-bot/internal/solana"
	"solana-sales-bot/internal/storage"
	"solana-sales-bot/internal/storage/memory"
	"solana-sales-bot/internal/storage/migrations"
	pgstore "solana-sales-bot/internal/storage/postgres"
	"solana-sales-bot/internal/storage/redisstore"
)

const (
	channelDisabled = "disabled"
	channelDryRun   = "dry-run"
)

// BuildOptions adjusts assembly for the binaries and tests.
type BuildOptions struct {
	// Feed replaces the configured feed.
	Feed ingestion.Feed
	// DryRun routes both channels to log senders.
	DryRun bool
	// WithServer starts the HTTP surface alongside the pipeline.
	WithServer bool
	Logger     *logrus.Entry
}

// App is an assembled bot.
type App struct {
	cfg        *config.Config
	policy     *decision.Policy
	supervisor *pipeline.Supervisor
	server     *server.Server
	sessions   []notify.Session
	channels   map[string]func() string
	feedName   string
	started    time.Time
	log        *logrus.Entry

	mu      sync.Mutex
	closers []func() error
}

// Build wires every component described by cfg. On error, whatever was
// already opened is closed.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (_ *App, err error) {
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("app")
	}
	a := &App{
		cfg:      cfg,
		channels: make(map[string]func() string),
		started:  time.Now(),
		log:      log,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.RPCTimeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithCommitment(cfg.Solana.Commitment),
	)

	enricher, fetcher, err := a.buildEnrichment(ctx, rpc)
	if err != nil {
		return nil, err
	}

	renderer, staticDir, err := a.buildRenderer(ctx, fetcher)
	if err != nil {
		return nil, err
	}

	a.policy, err = decision.NewPolicy(cfg.Filters.SecondaryMinPrice)
	if err != nil {
		return nil, err
	}

	dispatcher := a.buildDispatcher(opts.DryRun)

	feed := opts.Feed
	if feed == nil {
		if feed, err = a.buildFeed(ctx, rpc); err != nil {
			return nil, err
		}
	}
	a.feedName = feed.Name()

	a.supervisor = pipeline.NewSupervisor(pipeline.SupervisorOptions{
		Feed:    feed,
		Adapter: ingestion.NewAdapter(ingestion.AdapterOptions{Buffer: cfg.Feed.Buffer}),
		Processor: pipeline.NewPass(pipeline.PassOptions{
			Enricher:   enricher,
			Renderer:   renderer,
			Dispatcher: dispatcher,
		}),
		Workers:   cfg.Pipeline.Workers,
		QueueSize: cfg.Pipeline.QueueSize,
	})

	if opts.WithServer {
		a.server = server.New(server.Options{
			Addr:      cfg.Server.Addr,
			StaticDir: staticDir,
			Status:    a.Status,
		})
	}
	return a, nil
}

func (a *App) addCloser(fn func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

func lookupClient(name string, src config.SourceConfig, headers map[string]string) *lookup.Client {
	return lookup.NewClient(lookup.ClientOptions{
		Name:              name,
		BaseURL:           src.BaseURL,
		Timeout:           src.Timeout,
		RequestsPerSecond: src.RequestsPerSecond,
		Burst:             src.Burst,
		Headers:           headers,
	})
}

// buildEnrichment returns the orchestrator and the client used for
// off-chain metadata, which also downloads banner images.
func (a *App) buildEnrichment(ctx context.Context, rpc solana.RPCClient) (*orchestrator.Orchestrator, *lookup.Client, error) {
	cfg := a.cfg

	var cgHeaders, meHeaders map[string]string
	if key := cfg.Lookups.CoinGecko.APIKey; key != "" {
		cgHeaders = map[string]string{"x-cg-pro-api-key": key}
	}
	if key := cfg.Lookups.MagicEden.APIKey; key != "" {
		meHeaders = map[string]string{"Authorization": "Bearer " + key}
	}
	metaClient := lookupClient("metadata", cfg.Lookups.Metadata, nil)

	metaStore, err := a.metadataStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	rarityStore, err := a.rarityStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	tables := lookup.NewCachedTables(
		lookup.NewHowRare(lookupClient("howrare", cfg.Lookups.HowRare, nil)),
		rarityStore,
		cfg.Cache.RarityTTL,
	)

	orch := orchestrator.New(orchestrator.Options{
		Oracle:      lookup.NewCachedRate(lookup.NewCoinGecko(lookupClient("coingecko", cfg.Lookups.CoinGecko, cgHeaders)), cfg.Lookups.RateCacheTTL),
		Marketplace: lookup.NewMagicEden(lookupClient("magiceden", cfg.Lookups.MagicEden, meHeaders)),
		Metadata:    lookup.NewCachedMetadata(lookup.NewMetaplex(rpc, metaClient), metaStore),
		Rarity:      lookup.NewRarityScorer(tables),
	})
	return orch, metaClient, nil
}

func (a *App) metadataStore(ctx context.Context) (storage.MetadataStore, error) {
	if a.cfg.Cache.Metadata != config.BackendPostgres {
		return memory.NewMetadataStore(memory.MetadataStoreOptions{
			MaxEntries: a.cfg.Cache.MetadataEntries,
			TTL:        a.cfg.Cache.MetadataTTL,
		}), nil
	}
	pool, err := pgstore.NewPool(ctx, a.cfg.Postgres.DSN, pgstore.PoolOptions{MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, err
	}
	a.addCloser(func() error { pool.Close(); return nil })
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	a.log.Info("metadata cache: postgres")
	return pgstore.NewMetadataStore(pool), nil
}

func (a *App) rarityStore(ctx context.Context) (storage.RarityStore, error) {
	if a.cfg.Cache.Rarity != config.BackendRedis {
		return memory.NewRarityStore(), nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.addCloser(rc.Close)
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.log.Info("rarity cache: redis")
	return redisstore.NewRarityStore(rc, a.cfg.Redis.Prefix), nil
}

// buildRenderer returns a nil Renderer when artifacts are disabled. The
// returned directory is non-empty for the local store.
func (a *App) buildRenderer(ctx context.Context, fetcher render.ImageFetcher) (render.Renderer, string, error) {
	rc := a.cfg.Render
	var store render.ArtifactStore
	var staticDir string

	switch rc.Store {
	case config.StoreNone:
		return nil, "", nil
	case config.StoreS3:
		s3store, err := render.NewS3Store(ctx, render.S3Options{
			Bucket:          rc.S3.Bucket,
			Region:          rc.S3.Region,
			Prefix:          rc.S3.Prefix,
			Endpoint:        rc.S3.Endpoint,
			PathStyle:       rc.S3.PathStyle,
			AccessKeyID:     rc.S3.AccessKeyID,
			SecretAccessKey: rc.S3.SecretAccessKey,
			PublicBaseURL:   rc.S3.PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		store = s3store
	default:
		local, err := render.NewLocalStore(rc.LocalDir, a.cfg.Server.BaseURL)
		if err != nil {
			return nil, "", err
		}
		store = local
		staticDir = local.Dir()
	}

	return render.NewBannerRenderer(render.BannerOptions{Fetcher: fetcher, Store: store}), staticDir, nil
}

func (a *App) buildDispatcher(dryRun bool) *notify.Dispatcher {
	cfg := a.cfg
	var primary notify.PrimarySender
	var secondary notify.SecondarySender

	switch {
	case dryRun:
		primary = notify.NewLogSender("discord", nil)
		secondary = notify.NewLogSender("twitter", nil)
		a.channels["discord"] = func() string { return channelDryRun }
		a.channels["twitter"] = func() string { return channelDryRun }
	default:
		a.channels["discord"] = func() string { return channelDisabled }
		a.channels["twitter"] = func() string { return channelDisabled }
		if cfg.Discord.Enabled {
			d := notify.NewDiscordSender(notify.DiscordOptions{
				Token:     cfg.Discord.Token,
				ChannelID: cfg.Discord.ChannelID,
			})
			primary = d
			a.sessions = append(a.sessions, d)
			a.channels["discord"] = func() string { return d.State().String() }
		}
		if cfg.Twitter.Enabled {
			t := notify.NewTwitterSender(notify.TwitterOptions{
				ConsumerKey:    cfg.Twitter.ConsumerKey,
				ConsumerSecret: cfg.Twitter.ConsumerSecret,
				AccessToken:    cfg.Twitter.AccessToken,
				AccessSecret:   cfg.Twitter.AccessSecret,
			})
			secondary = t
			a.sessions = append(a.sessions, t)
			a.channels["twitter"] = func() string { return t.State().String() }
		}
	}

	return notify.NewDispatcher(notify.DispatcherOptions{
		Primary:   primary,
		Secondary: secondary,
		Router:    a.policy,
	})
}

func (a *App) buildFeed(ctx context.Context, rpc solana.RPCClient) (ingestion.Feed, error) {
	fc := a.cfg.Feed
	switch fc.Type {
	case config.FeedFile:
		return ingestion.NewFileFeed(fc.File), nil
	case config.FeedKafka:
		kf, err := ingestion.NewKafkaFeed(ingestion.KafkaFeedOptions{
			Brokers: fc.Kafka.Brokers,
			Topic:   fc.Kafka.Topic,
			GroupID: fc.Kafka.GroupID,
			Buffer:  fc.Buffer,
		})
		if err != nil {
			return nil, err
		}
		return kf, nil
	case config.FeedWS:
		wsCfg := solana.DefaultWSConfig()
		if a.cfg.Solana.Commitment != "" {
			wsCfg.Commitment = a.cfg.Solana.Commitment
		}
		ws, err := solana.NewWSClient(ctx, a.cfg.Solana.WSEndpoint, &wsCfg)
		if err != nil {
			return nil, fmt.Errorf("connect websocket: %w", err)
		}
		a.addCloser(ws.Close)
		return ingestion.NewWSTradeFeed(ingestion.WSTradeFeedOptions{
			WS:       ws,
			RPC:      rpc,
			Programs: a.cfg.Solana.Programs,
			Buffer:   fc.Buffer,
		}), nil
	default:
		return nil, fmt.Errorf("unknown feed type %q", fc.Type)
	}
}

// Policy returns the live filter policy.
func (a *App) Policy() *decision.Policy {
	return a.policy
}

// Open opens every channel session. A channel that fails to open is fatal:
// the bot would otherwise run with a dead channel.
func (a *App) Open(ctx context.Context) error {
	for _, s := range a.sessions {
		if err := s.Open(ctx); err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		a.addCloser(s.Close)
	}
	return nil
}

// Run processes the feed until it ends or ctx is cancelled. The HTTP surface,
// when enabled, stops with the pipeline.
func (a *App) Run(ctx context.Context) (pipeline.Stats, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	if a.server != nil {
		g.Go(func() error { return a.server.Run(runCtx) })
	}

	stats, err := a.supervisor.Run(runCtx)
	cancel()
	if serr := g.Wait(); serr != nil && err == nil {
		err = fmt.Errorf("http server: %w", serr)
	}
	return stats, err
}

// WatchConfig applies filter changes from path while ctx is alive.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, func(c *config.Config) {
		if err := a.policy.SetThreshold(c.Filters.SecondaryMinPrice); err != nil {
			a.log.WithError(err).Warn("ignoring secondary_min_price from reloaded config")
			return
		}
		a.log.WithField("secondary_min_price", c.Filters.SecondaryMinPrice).Info("filter policy updated")
	})
	if err != nil {
		return err
	}
	a.addCloser(w.Close)
	go w.Run(ctx)
	return nil
}

// Status reports the live state for /status.
func (a *App) Status() server.StatusResponse {
	channels := make(map[string]string, len(a.channels))
	for name, state := range a.channels {
		channels[name] = state()
	}
	return server.StatusResponse{
		Status:            "ok",
		Uptime:            time.Since(a.started).Round(time.Second).String(),
		Started:           a.started,
		Feed:              a.feedName,
		SecondaryMinPrice: a.policy.Threshold(),
		Channels:          channels,
	}
}

// Close releases everything in reverse order of acquisition.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
