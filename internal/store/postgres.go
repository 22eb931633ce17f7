package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/pricewatch/crawler/internal/types"
)

// PostgresStore is a JobStore backed by PostgreSQL via database/sql and
// the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to dsn and verifies it with a Ping.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an already-opened *sql.DB, so tests can point a
// PostgresStore at a sqlmock or dockertest instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error fn returns or panics with.
func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ActiveTargets(ctx context.Context) ([]types.TargetWithProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.product_id, t.domain, t.url, t.active, t.created_at,
		       p.sku, p.title, p.brand
		FROM targets t
		JOIN products p ON t.product_id = p.id
		WHERE t.active = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("active targets: %w", err)
	}
	defer rows.Close()

	var out []types.TargetWithProduct
	for rows.Next() {
		var t types.TargetWithProduct
		if err := rows.Scan(
			&t.ID, &t.ProductID, &t.Domain, &t.URL, &t.Active, &t.CreatedAt,
			&t.SKU, &t.Title, &t.Brand,
		); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertPendingJob keys the scrape_jobs row on target_id as its id, per
// this system's deliberate design: a job always exists 1:1 with its
// target, and repeated scheduler cycles bump its attempt counter rather
// than creating new rows.
func (s *PostgresStore) UpsertPendingJob(ctx context.Context, targetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_jobs (id, target_id, status, attempts, created_at, updated_at)
		VALUES ($1, $2, 'pending', 0, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = 'pending',
		    last_error = NULL,
		    updated_at = NOW(),
		    attempts = scrape_jobs.attempts + 1
	`, targetID, targetID)
	if err != nil {
		return &types.JobError{Op: "upsert_pending_job", Err: err}
	}
	return nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, jobID string, status types.JobStatus, lastError string) error {
	var errArg any
	if lastError != "" {
		errArg = lastError
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_jobs
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3
	`, string(status), errArg, jobID)
	if err != nil {
		return &types.JobError{Op: "update_job", Err: err}
	}
	return nil
}

func (s *PostgresStore) SavePriceObservation(ctx context.Context, obs types.PriceObservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_history (
				target_id, price, currency, scraped_at,
				raw_html, screenshot_url, proxy_used,
				user_agent, response_time_ms, content_hash
			) VALUES (
				$1, $2, $3, NOW(),
				$4, $5, $6,
				$7, $8, $9
			)
		`,
			obs.TargetID, obs.Price, obs.Currency,
			types.TruncateHTML(obs.RawHTMLPrefix), nullableString(obs.ScreenshotURL),
			nullableString(obs.ProxyUsed), obs.UserAgent, obs.ResponseTimeMs, obs.ContentHash,
		)
		if err != nil {
			return &types.JobError{Op: "save_price_observation", Err: err}
		}
		return nil
	})
}

func (s *PostgresStore) CreateAlert(ctx context.Context, productID string, alertType types.AlertType, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (product_id, alert_type, payload)
		VALUES ($1, $2, $3::jsonb)
	`, productID, string(alertType), data)
	if err != nil {
		return &types.JobError{Op: "create_alert", Err: err}
	}
	return nil
}

func (s *PostgresStore) LatestPrice(ctx context.Context, targetID string) (types.LatestPrice, bool, error) {
	var lp types.LatestPrice
	err := s.db.QueryRowContext(ctx, `
		SELECT price, scraped_at
		FROM price_history
		WHERE target_id = $1
		ORDER BY scraped_at DESC
		LIMIT 1
	`, targetID).Scan(&lp.Price, &lp.ScrapedAt)

	if err == sql.ErrNoRows {
		return types.LatestPrice{}, false, nil
	}
	if err != nil {
		return types.LatestPrice{}, false, &types.JobError{Op: "latest_price", Err: err}
	}
	return lp, true, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ JobStore = (*PostgresStore)(nil)
