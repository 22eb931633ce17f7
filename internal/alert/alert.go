// Package alert records anomalies durably and fans them out to operator
// webhooks (Discord, Telegram) on a best-effort basis: a webhook outage
// is logged and swallowed, never allowed to stall the scraping pipeline.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricewatch/crawler/internal/types"
)

// priceDropThreshold: a price drop only fires when new < old * this
// factor (strict), per the fleet's anomaly-detection rule.
const priceDropThreshold = 0.95

// jobStore is the subset of store.JobStore the AlertSink needs, kept
// narrow so this package doesn't import the store package's full
// surface.
type jobStore interface {
	CreateAlert(ctx context.Context, productID string, alertType types.AlertType, payload map[string]any) error
}

// webhookSender dispatches one rendered alert to all configured outbound
// webhooks. Failures are logged by the implementation and never returned
// to the caller's critical path.
type webhookSender interface {
	Send(title, message string, color int)
}

// Sink is the AlertSink: it always persists the alert synchronously, then
// dispatches to webhooks asynchronously via a bounded channel drained by
// a background goroutine.
type Sink struct {
	store   jobStore
	webhook webhookSender
	logger  *slog.Logger
	queue   chan dispatchJob
	done    chan struct{}
}

type dispatchJob struct {
	title   string
	message string
	color   int
}

// queueDepth bounds how many pending webhook dispatches can queue up
// before new ones are dropped (logged, not blocked on).
const queueDepth = 256

// NewSink starts the background dispatch goroutine and returns a ready
// Sink. Call Close to drain and stop it.
func NewSink(store jobStore, webhook webhookSender, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		store:   store,
		webhook: webhook,
		logger:  logger.With("component", "alert_sink"),
		queue:   make(chan dispatchJob, queueDepth),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *Sink) drain() {
	defer close(s.done)
	for job := range s.queue {
		s.webhook.Send(job.title, job.message, job.color)
	}
}

// Close stops accepting new dispatches and waits for the queue to drain.
func (s *Sink) Close() {
	close(s.queue)
	<-s.done
}

func (s *Sink) dispatch(title, message string, color int) {
	select {
	case s.queue <- dispatchJob{title: title, message: message, color: color}:
	default:
		s.logger.Warn("alert dispatch queue full, dropping webhook", "title", title)
	}
}

// TargetInfo carries the human-readable context an alert payload embeds.
type TargetInfo struct {
	ProductID string
	Title     string
	Domain    string
	URL       string
}

// CaptchaEncounter records and dispatches a CAPTCHA-challenge alert.
func (s *Sink) CaptchaEncounter(ctx context.Context, target TargetInfo, screenshotURL string) error {
	payload := map[string]any{
		"title":          target.Title,
		"domain":         target.Domain,
		"url":            target.URL,
		"screenshot_url": screenshotURL,
	}
	if err := s.store.CreateAlert(ctx, target.ProductID, types.AlertCaptchaEncounter, payload); err != nil {
		return err
	}

	msg := fmt.Sprintf("**Product:** %s\n**Domain:** %s\n**URL:** %s\n**Action Required:** Manual review needed",
		target.Title, target.Domain, target.URL)
	if screenshotURL != "" {
		msg += fmt.Sprintf("\n**Screenshot:** %s", screenshotURL)
	}
	s.dispatch("CAPTCHA Encountered", msg, 0xFFA500)
	return nil
}

// PriceDrop evaluates the drop rule (new < old * 0.95, strict) and, if it
// fires, records and dispatches a price-drop alert. It returns
// triggered=false without any side effect when the rule doesn't fire.
func (s *Sink) PriceDrop(ctx context.Context, target TargetInfo, oldPrice, newPrice float64) (triggered bool, err error) {
	if !(newPrice < oldPrice*priceDropThreshold) {
		return false, nil
	}

	dropPercent := (oldPrice - newPrice) / oldPrice * 100

	payload := map[string]any{
		"title":        target.Title,
		"domain":       target.Domain,
		"old_price":    oldPrice,
		"new_price":    newPrice,
		"drop_percent": dropPercent,
	}
	if err := s.store.CreateAlert(ctx, target.ProductID, types.AlertPriceDrop, payload); err != nil {
		return true, err
	}

	msg := fmt.Sprintf("**Product:** %s\n**Domain:** %s\n**Old Price:** %.2f\n**New Price:** %.2f\n**Drop:** %.1f%%",
		target.Title, target.Domain, oldPrice, newPrice, dropPercent)
	s.dispatch("Price Drop Alert", msg, 0x00FF00)
	return true, nil
}

// RepeatedErrors records and dispatches a repeated-failure alert.
func (s *Sink) RepeatedErrors(ctx context.Context, target TargetInfo, errorCount int) error {
	payload := map[string]any{
		"title":       target.Title,
		"domain":      target.Domain,
		"error_count": errorCount,
	}
	if err := s.store.CreateAlert(ctx, target.ProductID, types.AlertRepeatedErrors, payload); err != nil {
		return err
	}

	msg := fmt.Sprintf("**Product:** %s\n**Domain:** %s\n**Error Count:** %d\n**Action Required:** Check target configuration",
		target.Title, target.Domain, errorCount)
	s.dispatch("Repeated Scraping Errors", msg, 0xFF0000)
	return nil
}
