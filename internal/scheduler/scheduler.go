// Package scheduler runs the periodic control loop that turns active
// targets into pending scrape jobs: a single-threaded cooperative loop,
// not a worker pool, per the fleet's concurrency model.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricewatch/crawler/internal/observability"
	"github.com/pricewatch/crawler/internal/types"
)

// jobStore is the subset of store.JobStore the Scheduler drives.
type jobStore interface {
	ActiveTargets(ctx context.Context) ([]types.TargetWithProduct, error)
	UpsertPendingJob(ctx context.Context, targetID string) error
}

// Scheduler reads active targets on a fixed interval and upserts a
// pending job for each, with at-most-once upsert semantics per target
// per cycle.
type Scheduler struct {
	store    jobStore
	metrics  *observability.SchedulerMetrics
	logger   *slog.Logger
	interval time.Duration
}

// New builds a Scheduler. interval is the sleep between cycles.
func New(store jobStore, metrics *observability.SchedulerMetrics, logger *slog.Logger, interval time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		metrics:  metrics,
		logger:   logger.With("component", "scheduler"),
		interval: interval,
	}
}

// Run executes cycles until ctx is cancelled. A failed cycle is logged
// and never stops the loop; the loop still sleeps interval before the
// next iteration, matching the fleet's "exceptions from a cycle don't
// stop the loop" policy.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler starting", "interval", s.interval)
	for {
		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-time.After(s.interval):
		}
	}
}

// runCycle performs one read-active-targets/upsert-pending pass.
func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler cycle panicked", "panic", r)
		}
	}()

	targets, err := s.store.ActiveTargets(ctx)
	if err != nil {
		s.logger.Error("scheduler cycle: list active targets failed", "error", err)
		return
	}

	upserted := 0
	for _, t := range targets {
		if t.ID == "" {
			continue
		}
		if err := s.store.UpsertPendingJob(ctx, t.ID); err != nil {
			s.logger.Error("scheduler cycle: upsert pending job failed", "target_id", t.ID, "error", err)
			continue
		}
		upserted++
	}

	if s.metrics != nil {
		s.metrics.CyclesTotal.Inc()
		s.metrics.LastTargetsCount.Set(float64(upserted))
	}
	s.logger.Info("scheduler cycle complete", "targets", len(targets), "upserted", upserted)
}
