// Command worker runs the WorkerLoop: it dequeues active targets, fetches
// each through a stealth browser, parses the rendered price, and records
// the outcome.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricewatch/crawler/internal/alert"
	"github.com/pricewatch/crawler/internal/config"
	"github.com/pricewatch/crawler/internal/fetcher"
	"github.com/pricewatch/crawler/internal/observability"
	"github.com/pricewatch/crawler/internal/parser"
	"github.com/pricewatch/crawler/internal/proxypool"
	"github.com/pricewatch/crawler/internal/rategate"
	"github.com/pricewatch/crawler/internal/store"
	"github.com/pricewatch/crawler/internal/uapool"
	"github.com/pricewatch/crawler/internal/worker"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "Price-scrape worker",
		Long:  "Pulls active targets, fetches each through a stealth browser, parses the price, and records the outcome.",
		RunE:  run,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	gate, err := rategate.NewRedisGateFromURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect rate gate: %w", err)
	}
	defer gate.Close()

	webhook := alert.NewWebhook(alert.WebhookConfig{
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		TelegramBotToken:  cfg.TelegramBotToken,
		TelegramChatID:    cfg.TelegramChatID,
	}, logger)
	sink := alert.NewSink(db, webhook, logger)
	defer sink.Close()

	f := fetcher.NewRodFetcher(fetcher.DefaultStealthConfig(), logger)
	defer f.Close()

	metrics := observability.NewWorkerMetrics()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.ScraperMetricsPort)
		logger.Info("metrics server listening", "addr", addr)
		if err := metrics.Serve(addr); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	loop := worker.New(
		db,
		f,
		parser.NewRegistry(),
		proxypool.New(cfg.ProxyURLs(), logger),
		uapool.New(""),
		gate,
		sink,
		metrics,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop.Run(ctx)
	return nil
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
