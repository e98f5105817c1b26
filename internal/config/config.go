// Package config loads the bot configuration from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-sales-bot/internal/logging"
)

// Feed types.
const (
	FeedWS    = "ws"
	FeedKafka = "kafka"
	FeedFile  = "file"
)

// Cache and store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	StoreLocal      = "local"
	StoreS3         = "s3"
	StoreNone       = "none"
)

type Config struct {
	Log      logging.Config `yaml:"log"`
	Solana   SolanaConfig   `yaml:"solana"`
	Feed     FeedConfig     `yaml:"feed"`
	Lookups  LookupsConfig  `yaml:"lookups"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Render   RenderConfig   `yaml:"render"`
	Discord  DiscordConfig  `yaml:"discord"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Filters  FiltersConfig  `yaml:"filters"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
}

type SolanaConfig struct {
	RPCEndpoint string        `yaml:"rpc_endpoint"`
	WSEndpoint  string        `yaml:"ws_endpoint"`
	Commitment  string        `yaml:"commitment"`
	RPCTimeout  time.Duration `yaml:"rpc_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	// Programs whose logs are subscribed to. Defaults to the Hadeswap program.
	Programs []string `yaml:"programs"`
}

type FeedConfig struct {
	Type   string      `yaml:"type"` // ws, kafka or file
	Buffer int         `yaml:"buffer"`
	File   string      `yaml:"file"`
	Kafka  KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// SourceConfig is one third-party HTTP API.
type SourceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type LookupsConfig struct {
	CoinGecko SourceConfig `yaml:"coingecko"`
	MagicEden SourceConfig `yaml:"magiceden"`
	HowRare   SourceConfig `yaml:"howrare"`
	// Metadata covers off-chain metadata JSON and image downloads.
	Metadata     SourceConfig  `yaml:"metadata"`
	RateCacheTTL time.Duration `yaml:"rate_cache_ttl"`
}

type CacheConfig struct {
	Metadata  string        `yaml:"metadata"` // memory or postgres
	Rarity    string        `yaml:"rarity"`   // memory or redis
	RarityTTL time.Duration `yaml:"rarity_ttl"`
	// MetadataEntries and MetadataTTL bound the in-memory metadata cache.
	MetadataEntries int           `yaml:"metadata_entries"`
	MetadataTTL     time.Duration `yaml:"metadata_ttl"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type RenderConfig struct {
	Store    string   `yaml:"store"` // local, s3 or none
	LocalDir string   `yaml:"local_dir"`
	S3       S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	PublicBaseURL   string `yaml:"public_base_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

type TwitterConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	AccessToken    string `yaml:"access_token"`
	AccessSecret   string `yaml:"access_secret"`
}

type FiltersConfig struct {
	SecondaryMinPrice float64 `yaml:"secondary_min_price"`
}

type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// BaseURL is the public origin used in artifact links.
	BaseURL string `yaml:"base_url"`
}

// Default returns the configuration used for any value the file omits.
func Default() *Config {
	return &Config{
		Log: logging.DefaultConfig(),
		Solana: SolanaConfig{
			RPCEndpoint: "https://api.mainnet-beta.solana.com",
			WSEndpoint:  "wss://api.mainnet-beta.solana.com",
			Commitment:  "confirmed",
			RPCTimeout:  15 * time.Second,
			MaxRetries:  2,
		},
		Feed: FeedConfig{
			Type:   FeedWS,
			Buffer: 64,
			Kafka:  KafkaConfig{GroupID: "solana-sales-bot"},
		},
		Lookups: LookupsConfig{
			CoinGecko:    SourceConfig{BaseURL: "https://api.coingecko.com/api/v3", Timeout: 10 * time.Second, RequestsPerSecond: 0.5, Burst: 2},
			MagicEden:    SourceConfig{BaseURL: "https://api-mainnet.magiceden.dev", Timeout: 10 * time.Second, RequestsPerSecond: 2, Burst: 2},
			HowRare:      SourceConfig{BaseURL: "https://api.howrare.is", Timeout: 20 * time.Second, RequestsPerSecond: 1, Burst: 1},
			Metadata:     SourceConfig{Timeout: 15 * time.Second},
			RateCacheTTL: 30 * time.Second,
		},
		Cache: CacheConfig{
			Metadata:        BackendMemory,
			Rarity:          BackendMemory,
			RarityTTL:       6 * time.Hour,
			MetadataEntries: 50_000,
			MetadataTTL:     24 * time.Hour,
		},
		Postgres: PostgresConfig{MaxConns: 10},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Render: RenderConfig{
			Store:    StoreLocal,
			LocalDir: "output",
			S3:       S3Config{Region: "us-east-1"},
		},
		Discord: DiscordConfig{Enabled: true},
		Twitter: TwitterConfig{Enabled: true},
		Filters: FiltersConfig{SecondaryMinPrice: 10},
		Pipeline: PipelineConfig{
			Workers:   4,
			QueueSize: 256,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
	}
}

// LoadDotEnv loads .env style files into the environment. Missing files are
// ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path over the defaults and applies environment overrides.
// An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	str("SOLANA_RPC_ENDPOINT", &c.Solana.RPCEndpoint)
	str("SOLANA_WS_ENDPOINT", &c.Solana.WSEndpoint)
	str("DISCORD_BOT_TOKEN", &c.Discord.Token)
	str("DISCORD_CHANNEL_ID", &c.Discord.ChannelID)
	str("TWITTER_CONSUMER_KEY", &c.Twitter.ConsumerKey)
	str("TWITTER_CONSUMER_SECRET", &c.Twitter.ConsumerSecret)
	str("TWITTER_ACCESS_TOKEN", &c.Twitter.AccessToken)
	str("TWITTER_ACCESS_SECRET", &c.Twitter.AccessSecret)
	str("COINGECKO_API_KEY", &c.Lookups.CoinGecko.APIKey)
	str("MAGICEDEN_API_KEY", &c.Lookups.MagicEden.APIKey)
	str("POSTGRES_DSN", &c.Postgres.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("AWS_REGION", &c.Render.S3.Region)
	str("AWS_ACCESS_KEY_ID", &c.Render.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &c.Render.S3.SecretAccessKey)
	str("S3_BUCKET", &c.Render.S3.Bucket)
	str("PUBLIC_BASE_URL", &c.Server.BaseURL)
	str("LOG_LEVEL", &c.Log.Level)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Feed.Kafka.Brokers = splitList(v)
	}
	if v := getenv("SECONDARY_MIN_PRICE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SECONDARY_MIN_PRICE: %w", err)
		}
		c.Filters.SecondaryMinPrice = f
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every missing or inconsistent value at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Feed.Type {
	case FeedWS:
		if c.Solana.WSEndpoint == "" {
			add("solana.ws_endpoint is required for the ws feed")
		}
	case FeedKafka:
		if len(c.Feed.Kafka.Brokers) == 0 || c.Feed.Kafka.Topic == "" {
			add("feed.kafka.brokers and feed.kafka.topic are required for the kafka feed")
		}
	case FeedFile:
		if c.Feed.File == "" {
			add("feed.file is required for the file feed")
		}
	default:
		add("feed.type must be ws, kafka or file, got %q", c.Feed.Type)
	}

	if c.Solana.RPCEndpoint == "" {
		add("solana.rpc_endpoint is required")
	}

	switch c.Cache.Metadata {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			add("postgres.dsn is required when cache.metadata is postgres")
		}
	default:
		add("cache.metadata must be memory or postgres, got %q", c.Cache.Metadata)
	}
	if c.Cache.MetadataEntries < 0 {
		add("cache.metadata_entries must be >= 0")
	}
	switch c.Cache.Rarity {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			add("redis.addr is required when cache.rarity is redis")
		}
	default:
		add("cache.rarity must be memory or redis, got %q", c.Cache.Rarity)
	}

	switch c.Render.Store {
	case StoreLocal:
		if c.Render.LocalDir == "" {
			add("render.local_dir is required for the local store")
		}
	case StoreS3:
		if c.Render.S3.Bucket == "" {
			add("render.s3.bucket is required for the s3 store")
		}
	case StoreNone:
	default:
		add("render.store must be local, s3 or none, got %q", c.Render.Store)
	}

	if c.Discord.Enabled && (c.Discord.Token == "" || c.Discord.ChannelID == "") {
		add("discord.token and discord.channel_id are required (or DISCORD_BOT_TOKEN / DISCORD_CHANNEL_ID)")
	}
	if c.Twitter.Enabled {
		t := c.Twitter
		if t.ConsumerKey == "" || t.ConsumerSecret == "" || t.AccessToken == "" || t.AccessSecret == "" {
			add("twitter credentials are required (or TWITTER_* env vars)")
		}
	}

	if c.Filters.SecondaryMinPrice < 0 {
		add("filters.secondary_min_price must be >= 0")
	}
	if c.Pipeline.Workers <= 0 {
		add("pipeline.workers must be > 0")
	}
	if c.Pipeline.QueueSize <= 0 {
		add("pipeline.queue_size must be > 0")
	}

	return errors.Join(errs...)
}

// DryRun disables both live channels.
func (c *Config) DryRun() {
	c.Discord.Enabled = false
	c.Twitter.Enabled = false
}
