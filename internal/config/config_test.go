package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
feed:
  type: kafka
  kafka:
    brokers: ["kafka-1:9092"]
    topic: hadeswap.trades
lookups:
  rate_cache_ttl: 45s
cache:
  rarity: redis
  rarity_ttl: 1h
  metadata_entries: 1000
discord:
  token: file-token
  channel_id: "123"
twitter:
  enabled: false
filters:
  secondary_min_price: 25.5
pipeline:
  workers: 8
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bot.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FeedKafka, cfg.Feed.Type)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Feed.Kafka.Brokers)
	assert.Equal(t, "solana-sales-bot", cfg.Feed.Kafka.GroupID)
	assert.Equal(t, 45*time.Second, cfg.Lookups.RateCacheTTL)
	assert.Equal(t, time.Hour, cfg.Cache.RarityTTL)
	assert.Equal(t, 1000, cfg.Cache.MetadataEntries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.MetadataTTL)
	assert.Equal(t, 25.5, cfg.Filters.SecondaryMinPrice)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 256, cfg.Pipeline.QueueSize)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Lookups.CoinGecko.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "feed: [unterminated")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse yaml")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DISCORD_BOT_TOKEN":   "env-token",
		"KAFKA_BROKERS":       "a:9092, b:9092,",
		"SECONDARY_MIN_PRICE": "12",
		"POSTGRES_DSN":        "postgres://bot@db/sales",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Feed.Kafka.Brokers)
	assert.Equal(t, 12.0, cfg.Filters.SecondaryMinPrice)
	assert.Equal(t, "postgres://bot@db/sales", cfg.Postgres.DSN)

	bad := Default()
	assert.Error(t, bad.ApplyEnv(func(k string) string {
		if k == "SECONDARY_MIN_PRICE" {
			return "ten"
		}
		return ""
	}))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "SALESBOT_TEST_DOTENV=from-file\n")
	t.Setenv("SALESBOT_TEST_DOTENV", "")
	os.Unsetenv("SALESBOT_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("SALESBOT_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "discord.token")
	assert.ErrorContains(t, err, "twitter credentials")

	cfg.DryRun()
	assert.NoError(t, cfg.Validate())

	cfg.Feed.Type = "carrier-pigeon"
	cfg.Cache.Metadata = BackendPostgres
	cfg.Render.Store = StoreS3
	cfg.Filters.SecondaryMinPrice = -1
	cfg.Cache.MetadataEntries = -5
	err = cfg.Validate()
	assert.ErrorContains(t, err, "cache.metadata_entries")
	assert.ErrorContains(t, err, "feed.type")
	assert.ErrorContains(t, err, "postgres.dsn")
	assert.ErrorContains(t, err, "render.s3.bucket")
	assert.ErrorContains(t, err, "secondary_min_price")
}

func TestWatcher_ReloadsThreshold(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bot.yaml", "filters:\n  secondary_min_price: 10\n")

	reloaded := make(chan float64, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c.Filters.SecondaryMinPrice })
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "other.yaml", "ignored: true\n")
	writeFile(t, dir, "bot.yaml", "filters:\n  secondary_min_price: 3.5\n")

	select {
	case v := <-reloaded:
		assert.Equal(t, 3.5, v)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bot.yaml", "filters:\n  secondary_min_price: 10\n")

	reloaded := make(chan struct{}, 4)
	w, err := NewWatcher(path, func(*Config) { reloaded <- struct{}{} })
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "bot.yaml", "filters: [")
	select {
	case <-reloaded:
		t.Fatal("invalid config must not be applied")
	case <-time.After(300 * time.Millisecond):
	}
}
