// Package main runs the live sales bot: marketplace trades are enriched,
// rendered and announced on Discord and Twitter.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"solana-sales-bot/internal/app"
	"solana-sales-bot/internal/config"
	"solana-sales-bot/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	envFile := flag.String("env", ".env", "Path to .env file")
	feedType := flag.String("feed", "", "Override feed type: ws, kafka or file")
	dryRun := flag.Bool("dry-run", false, "Log announcements instead of sending them")
	watch := flag.Bool("watch", true, "Reload filter settings when the config file changes")
	flag.Parse()

	log := logging.WithComponent("salesbot")

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.WithError(err).Fatal("failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if *feedType != "" {
		cfg.Feed.Type = *feedType
	}
	if *dryRun {
		cfg.DryRun()
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	if err := logging.Configure(cfg.Log); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	bot, err := app.Build(ctx, cfg, app.BuildOptions{DryRun: *dryRun, WithServer: true})
	if err != nil {
		log.WithError(err).Fatal("failed to build bot")
	}
	defer bot.Close()

	if err := bot.Open(ctx); err != nil {
		log.WithError(err).Error("failed to open channels")
		bot.Close()
		os.Exit(1)
	}
	if *watch && *configPath != "" {
		if err := bot.WatchConfig(ctx, *configPath); err != nil {
			log.WithError(err).Warn("config watch disabled")
		}
	}

	log.WithFields(logging.Fields{
		"feed":                cfg.Feed.Type,
		"dry_run":             *dryRun,
		"secondary_min_price": cfg.Filters.SecondaryMinPrice,
	}).Info("sales bot started")

	stats, err := bot.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("bot stopped with error")
		bot.Close()
		os.Exit(1)
	}
	log.WithFields(logging.Fields{
		"received": stats.Received,
		"outcomes": stats.Outcomes,
	}).Info("sales bot stopped")
}
