// Command scheduler runs the periodic control loop that turns active
// targets into pending scrape jobs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricewatch/crawler/internal/config"
	"github.com/pricewatch/crawler/internal/observability"
	"github.com/pricewatch/crawler/internal/scheduler"
	"github.com/pricewatch/crawler/internal/store"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Periodic scrape-job scheduler",
		Long:  "Reads active targets on a fixed interval and upserts a pending scrape job for each.",
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

	metrics := observability.NewSchedulerMetrics()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.SchedulerMetricsPort)
		logger.Info("metrics server listening", "addr", addr)
		if err := metrics.Serve(addr); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(db, metrics, logger, cfg.SchedulerInterval())
	s.Run(ctx)

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
