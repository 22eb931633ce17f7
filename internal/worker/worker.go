// Package worker implements the WorkerLoop: a single-threaded cooperative
// loop that pulls active targets, fetches each through a stealth browser,
// parses the rendered price, and records the outcome, honouring the
// shared RateGate and the fleet's retry policy along the way.
package worker

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/pricewatch/crawler/internal/alert"
	"github.com/pricewatch/crawler/internal/fetcher"
	"github.com/pricewatch/crawler/internal/observability"
	"github.com/pricewatch/crawler/internal/parser"
	"github.com/pricewatch/crawler/internal/proxypool"
	"github.com/pricewatch/crawler/internal/rategate"
	"github.com/pricewatch/crawler/internal/retry"
	"github.com/pricewatch/crawler/internal/types"
	"github.com/pricewatch/crawler/internal/uapool"
)

// polite is the delay between consecutive targets within one pass.
const polite = 2 * time.Second

// idlePause is how long the loop sleeps after a full pass over all
// active targets before starting the next one.
const idlePause = 60 * time.Second

// errorBackoff is the delay after a worker-level failure (e.g. the
// active-targets query itself failing), distinct from per-target errors.
const errorBackoff = 10 * time.Second

const (
	gateAfterSuccess = 5 * time.Second
	gateAfterFailure = 30 * time.Second
	gateAfterCaptcha = 300 * time.Second
)

// jobStore is the subset of store.JobStore the WorkerLoop drives.
type jobStore interface {
	ActiveTargets(ctx context.Context) ([]types.TargetWithProduct, error)
	UpdateJob(ctx context.Context, jobID string, status types.JobStatus, lastError string) error
	SavePriceObservation(ctx context.Context, obs types.PriceObservation) error
	LatestPrice(ctx context.Context, targetID string) (types.LatestPrice, bool, error)
}

// Loop is the WorkerLoop: one process, one target at a time.
type Loop struct {
	store     jobStore
	fetcher   fetcher.PageFetcher
	parsers   *parser.Registry
	proxies   *proxypool.Pool
	userAgent *uapool.Pool
	gate      rategate.Gate
	alerts    *alert.Sink
	metrics   *observability.WorkerMetrics
	retryP    retry.Policy
	logger    *slog.Logger
}

// New builds a WorkerLoop from its collaborators.
func New(
	store jobStore,
	f fetcher.PageFetcher,
	parsers *parser.Registry,
	proxies *proxypool.Pool,
	userAgent *uapool.Pool,
	gate rategate.Gate,
	alerts *alert.Sink,
	metrics *observability.WorkerMetrics,
	logger *slog.Logger,
) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		store:     store,
		fetcher:   f,
		parsers:   parsers,
		proxies:   proxies,
		userAgent: userAgent,
		gate:      gate,
		alerts:    alerts,
		metrics:   metrics,
		retryP:    retry.DefaultPolicy(),
		logger:    logger.With("component", "worker"),
	}
}

// Run executes passes over the active target set until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("worker starting")
	for {
		if ctx.Err() != nil {
			l.logger.Info("worker stopping")
			return
		}

		targets, err := l.store.ActiveTargets(ctx)
		if err != nil {
			l.logger.Error("worker: list active targets failed", "error", err)
			if !sleepOrDone(ctx, errorBackoff) {
				return
			}
			continue
		}

		for i, t := range targets {
			if ctx.Err() != nil {
				return
			}
			l.processTarget(ctx, t)
			if i < len(targets)-1 {
				if !sleepOrDone(ctx, polite) {
					return
				}
			}
		}

		if !sleepOrDone(ctx, idlePause) {
			return
		}
	}
}

// sleepOrDone waits for d or ctx cancellation, returning false if
// cancelled so the caller can exit promptly.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// processTarget runs the per-target pipeline: rate-gate wait, fetch,
// CAPTCHA/parse branching, and outcome recording. Errors are logged, not
// propagated — a single bad target never aborts the loop.
func (l *Loop) processTarget(ctx context.Context, target types.TargetWithProduct) {
	logger := l.logger.With("target_id", target.ID, "domain", target.Domain)
	start := time.Now()

	if wait, err := l.gate.Check(ctx, target.Domain); err != nil {
		logger.Warn("rate gate check failed, proceeding without wait", "error", err)
	} else if wait > 0 {
		logger.Info("rate gate active, waiting", "wait", wait)
		if !sleepOrDone(ctx, wait) {
			return
		}
	}

	info := alert.TargetInfo{
		ProductID: target.ProductID,
		Title:     target.Title,
		Domain:    target.Domain,
		URL:       target.URL,
	}

	result, proxyUsed, userAgent, err := l.fetchWithRetry(ctx, target.URL)
	if err != nil {
		logger.Warn("fetch failed after retries", "error", err)
		l.fail(ctx, target.ID, "fetch failed: "+err.Error())
		l.setGate(ctx, target.Domain, gateAfterFailure)
		l.recordMetrics(target.Domain, false, false, time.Since(start))
		return
	}

	if l.parsers.For(target.Domain).DetectCAPTCHA(result.HTML) {
		logger.Warn("captcha encountered")
		if err := l.alerts.CaptchaEncounter(ctx, info, result.ScreenshotURL); err != nil {
			logger.Error("captcha alert persist failed", "error", err)
		}
		l.updateJob(ctx, target.ID, types.JobCaptcha, "")
		l.setGate(ctx, target.Domain, gateAfterCaptcha)
		l.recordMetrics(target.Domain, false, true, time.Since(start))
		return
	}

	price, err := l.parsers.For(target.Domain).ParsePrice(result.HTML)
	if err != nil {
		logger.Warn("price parse miss", "error", err)
		l.fail(ctx, target.ID, "Price parsing failed")
		l.setGate(ctx, target.Domain, gateAfterFailure)
		l.recordMetrics(target.Domain, false, false, time.Since(start))
		return
	}

	if prior, ok, err := l.store.LatestPrice(ctx, target.ID); err != nil {
		logger.Error("latest price lookup failed", "error", err)
	} else if ok {
		if _, err := l.alerts.PriceDrop(ctx, info, prior.Price, price.Price); err != nil {
			logger.Error("price drop alert persist failed", "error", err)
		}
	}

	obs := types.PriceObservation{
		TargetID:       target.ID,
		Price:          price.Price,
		Currency:       price.Currency,
		RawHTMLPrefix:  types.TruncateHTML(result.HTML),
		ScreenshotURL:  result.ScreenshotURL,
		ProxyUsed:      proxyUsed,
		UserAgent:      userAgent,
		ResponseTimeMs: int(result.ResponseTime.Milliseconds()),
		ContentHash:    l.parsers.For(target.Domain).ContentHash(result.HTML),
	}
	if err := l.store.SavePriceObservation(ctx, obs); err != nil {
		logger.Error("save price observation failed", "error", err)
		l.fail(ctx, target.ID, "save observation failed: "+err.Error())
		l.setGate(ctx, target.Domain, gateAfterFailure)
		l.recordMetrics(target.Domain, false, false, time.Since(start))
		return
	}

	l.updateJob(ctx, target.ID, types.JobSuccess, "")
	l.setGate(ctx, target.Domain, gateAfterSuccess)
	l.recordMetrics(target.Domain, true, false, time.Since(start))
}

// fetchWithRetry runs PageFetcher.Fetch under the fleet's retry policy,
// picking a fresh proxy and user agent on every attempt and reporting
// proxy health back to the pool.
func (l *Loop) fetchWithRetry(ctx context.Context, target string) (*fetcher.Result, string, string, error) {
	var proxyUsed, userAgent string

	result, err := retry.Do(ctx, l.retryP, func(ctx context.Context, attempt int) (*fetcher.Result, error) {
		var proxy *url.URL
		if p, ok := l.proxies.Select(); ok {
			proxy = p
		}
		ua := l.userAgent.Pick()
		proxyUsed, userAgent = proxyURLString(proxy), ua

		res, err := l.fetcher.Fetch(ctx, target, fetcher.Options{
			Proxy:     proxy,
			UserAgent: ua,
		})
		if err != nil {
			if proxy != nil {
				l.proxies.MarkFailure(proxy)
			}
			return nil, err
		}
		if proxy != nil {
			l.proxies.MarkSuccess(proxy)
		}
		return res, nil
	})
	return result, proxyUsed, userAgent, err
}

func proxyURLString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func (l *Loop) fail(ctx context.Context, targetID, message string) {
	l.updateJob(ctx, targetID, types.JobFailed, message)
}

func (l *Loop) updateJob(ctx context.Context, targetID string, status types.JobStatus, lastError string) {
	if err := l.store.UpdateJob(ctx, targetID, status, lastError); err != nil {
		l.logger.Error("update job failed", "target_id", targetID, "status", status, "error", err)
	}
}

func (l *Loop) setGate(ctx context.Context, domain string, ttl time.Duration) {
	if err := l.gate.Set(ctx, domain, ttl); err != nil {
		l.logger.Warn("rate gate set failed", "domain", domain, "error", err)
	}
}

func (l *Loop) recordMetrics(domain string, success, captcha bool, d time.Duration) {
	if l.metrics == nil {
		return
	}
	switch {
	case captcha:
		l.metrics.CaptchaTotal.WithLabelValues(domain).Inc()
	case success:
		l.metrics.SuccessTotal.WithLabelValues(domain).Inc()
	default:
		l.metrics.FailureTotal.WithLabelValues(domain).Inc()
	}
	l.metrics.LastDurationSeconds.WithLabelValues(domain).Set(d.Seconds())
}
