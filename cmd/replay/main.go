// Package main replays a newline-delimited JSON file of trade records
// through the full pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"solana-sales-bot/internal/app"
	"solana-sales-bot/internal/config"
	"solana-sales-bot/internal/ingestion"
	"solana-sales-bot/internal/logging"
	"solana-sales-bot/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "NDJSON file of trade records (required)")
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	envFile := flag.String("env", ".env", "Path to .env file")
	dryRun := flag.Bool("dry-run", true, "Log announcements instead of sending them")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	flag.Parse()

	log := logging.WithComponent("replay")

	if *input == "" {
		log.Fatal("--input is required")
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.WithError(err).Fatal("failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	cfg.Feed.Type = config.FeedFile
	cfg.Feed.File = *input
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
		log.WithField("signal", sig.String()).Info("interrupted")
		cancel()
	}()

	bot, err := app.Build(ctx, cfg, app.BuildOptions{
		Feed:   ingestion.NewFileFeed(*input),
		DryRun: *dryRun,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}
	defer bot.Close()

	if err := bot.Open(ctx); err != nil {
		log.WithError(err).Error("failed to open channels")
		bot.Close()
		os.Exit(1)
	}

	log.WithFields(logging.Fields{"input": *input, "dry_run": *dryRun}).Info("replaying trades")
	stats, err := bot.Run(ctx)
	if err != nil {
		log.WithError(err).Error("replay interrupted")
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Input:     %s\n", *input)
	fmt.Printf("Received:  %d\n", stats.Received)
	outcomes := make([]string, 0, len(stats.Outcomes))
	for o := range stats.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Printf("  %-14s %d\n", o+":", stats.Outcomes[pipeline.Outcome(o)])
	}
}
