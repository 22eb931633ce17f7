// Package store persists targets, scrape jobs, price observations, and
// alerts to PostgreSQL. It is the single source of truth the Scheduler
// and every Worker process read and write through.
package store

import (
	"context"

	"github.com/pricewatch/crawler/internal/types"
)

// JobStore is the persistence contract the Scheduler and WorkerLoop use.
type JobStore interface {
	// ActiveTargets returns every target with active = TRUE, joined with
	// its owning product.
	ActiveTargets(ctx context.Context) ([]types.TargetWithProduct, error)

	// UpsertPendingJob marks targetID's job pending, creating the row on
	// first sight. The job id is the target id. Each call bumps attempts.
	UpsertPendingJob(ctx context.Context, targetID string) error

	// UpdateJob sets a job's terminal status and optional error message.
	UpdateJob(ctx context.Context, jobID string, status types.JobStatus, lastError string) error

	// SavePriceObservation appends one price sample.
	SavePriceObservation(ctx context.Context, obs types.PriceObservation) error

	// CreateAlert appends one alert row.
	CreateAlert(ctx context.Context, productID string, alertType types.AlertType, payload map[string]any) error

	// LatestPrice returns the most recent price observation for a
	// target, or ok=false if none exists yet.
	LatestPrice(ctx context.Context, targetID string) (types.LatestPrice, bool, error)
}
