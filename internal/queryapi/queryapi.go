// Package queryapi carries the read-only query contract an external
// HTTP handler would satisfy over JobStore's data. No HTTP surface,
// routing, or auth is implemented here — this interface exists so
// JobStore has a natural read-side extension point without this repo
// owning that surface.
package queryapi

import (
	"context"

	"github.com/pricewatch/crawler/internal/types"
)

// QueryAPI is the read-only surface an operator dashboard or reporting
// tool would call into.
type QueryAPI interface {
	// ListProducts returns known products, most recently created first.
	ListProducts(ctx context.Context, limit, offset int) ([]types.Product, error)

	// ListTargets returns targets tracked for a product.
	ListTargets(ctx context.Context, productID string) ([]types.Target, error)

	// ListRecentJobs returns the most recently updated scrape jobs.
	ListRecentJobs(ctx context.Context, limit int) ([]types.ScrapeJob, error)
}
