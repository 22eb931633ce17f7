// Package types defines the entities the scheduling/scraping pipeline
// reads, writes, and carries in memory: targets, products, jobs, price
// observations, alerts, and proxy health.
package types

import "time"

// JobStatus is the lifecycle state of a ScrapeJob.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
	JobCaptcha JobStatus = "captcha"
)

// Target is a (product, domain, URL) triple to be scraped. Owned by the
// catalog; the core treats it as read-only.
type Target struct {
	ID        string
	ProductID string
	Domain    string
	URL       string
	Active    bool
	CreatedAt time.Time
}

// Product is joined into target rows to give alerts human-readable context.
type Product struct {
	ID        string
	SKU       string
	Title     string
	Brand     string
	CreatedAt time.Time
}

// TargetWithProduct is the row shape returned by JobStore.ActiveTargets:
// a target joined with its owning product.
type TargetWithProduct struct {
	Target
	SKU   string
	Title string
	Brand string
}

// ScrapeJob tracks the last outcome of scraping a single target. Its id is
// keyed off target_id, so the row is unique per target and upsert-based.
type ScrapeJob struct {
	ID        string
	TargetID  string
	Status    JobStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceObservation is one append-only price sample with provenance.
type PriceObservation struct {
	TargetID        string
	Price           float64
	Currency        string
	ScrapedAt       time.Time
	RawHTMLPrefix   string
	ScreenshotURL   string
	ProxyUsed       string
	UserAgent       string
	ResponseTimeMs  int
	ContentHash     string
}

// MaxRawHTMLPrefix is the bound on the persisted raw_html_prefix column.
const MaxRawHTMLPrefix = 5000

// TruncateHTML applies the persisted raw-HTML bound, counted in
// characters (runes), not bytes.
func TruncateHTML(html string) string {
	if len(html) <= MaxRawHTMLPrefix {
		return html
	}
	runes := []rune(html)
	if len(runes) <= MaxRawHTMLPrefix {
		return html
	}
	return string(runes[:MaxRawHTMLPrefix])
}

// AlertType identifies the kind of anomaly an Alert records.
type AlertType string

const (
	AlertCaptchaEncounter AlertType = "captcha_encounter"
	AlertPriceDrop        AlertType = "price_drop"
	AlertRepeatedErrors   AlertType = "repeated_errors"
)

// Alert is an append-only anomaly record with a structured payload.
type Alert struct {
	ID        string
	ProductID string
	Type      AlertType
	Payload   map[string]any
	Resolved  bool
	CreatedAt time.Time
}

// LatestPrice is the minimal shape JobStore.LatestPrice returns.
type LatestPrice struct {
	Price     float64
	ScrapedAt time.Time
}
