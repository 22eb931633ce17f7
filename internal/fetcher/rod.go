package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
)

// RodFetcher renders pages with a headless, stealth-patched Chromium via
// go-rod/rod. Each Fetch launches its own browser instance so that a
// different proxy, user agent, and viewport can be applied on every retry
// attempt.
type RodFetcher struct {
	stealthCfg     *StealthConfig
	defaultTimeout time.Duration
	screenshotDir  string
	logger         *slog.Logger
}

// RodOption configures a RodFetcher.
type RodOption func(*RodFetcher)

// WithDefaultTimeout overrides the navigation timeout used when an
// Options.Timeout of zero is passed to Fetch.
func WithDefaultTimeout(d time.Duration) RodOption {
	return func(f *RodFetcher) { f.defaultTimeout = d }
}

// WithScreenshotDir sets the directory error screenshots are written to.
// Defaults to "./screenshots".
func WithScreenshotDir(dir string) RodOption {
	return func(f *RodFetcher) { f.screenshotDir = dir }
}

// NewRodFetcher constructs a RodFetcher with the given stealth profile.
func NewRodFetcher(stealthCfg *StealthConfig, logger *slog.Logger, opts ...RodOption) *RodFetcher {
	if stealthCfg == nil {
		stealthCfg = DefaultStealthConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &RodFetcher{
		stealthCfg:     stealthCfg,
		defaultTimeout: 30 * time.Second,
		screenshotDir:  "./screenshots",
		logger:         logger.With("component", "rod_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch launches a fresh browser, navigates to target, and returns its
// rendered HTML. The browser and its page are always released before
// returning, on every exit path.
func (f *RodFetcher) Fetch(ctx context.Context, target string, opts Options) (*Result, error) {
	start := time.Now()

	viewportWidth, viewportHeight := randomViewport()

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", viewportWidth, viewportHeight))

	if opts.Proxy != nil {
		l = l.Proxy(opts.Proxy.String())
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			f.logger.Warn("browser close error", "error", cerr)
		}
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if _, err := page.EvalOnNewDocument(f.stealthCfg.StealthJS()); err != nil {
		f.logger.Warn("stealth JS injection failed", "error", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  viewportWidth,
		Height: viewportHeight,
	}); err != nil {
		f.logger.Warn("set viewport failed", "error", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{
		TimezoneID: f.stealthCfg.Timezone,
	}).Call(page); err != nil {
		f.logger.Warn("set timezone failed", "error", err)
	}

	ua := opts.UserAgent
	if ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      ua,
			AcceptLanguage: f.stealthCfg.Locale,
		}); err != nil {
			f.logger.Warn("set user agent failed", "error", err)
		}
	}

	timeout := f.defaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	if err := page.Timeout(timeout).Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		f.logger.Warn("page stability timeout, continuing", "url", target, "error", err)
	}

	if opts.WaitSelector != "" {
		el, err := page.Timeout(10 * time.Second).Element(opts.WaitSelector)
		if err == nil {
			err = el.WaitVisible()
		}
		if err != nil {
			f.logger.Warn("wait selector timeout", "selector", opts.WaitSelector, "error", err)
		}
	}

	pace := time.Duration(500+rand.IntN(1500)) * time.Millisecond
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(pace):
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	finalURL := target
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	// Rod doesn't expose the main document's HTTP status without wiring
	// up CDP network event hooks; assume 200 unless navigation itself
	// failed above.
	statusCode := 200

	result := &Result{
		HTML:         html,
		FinalURL:     finalURL,
		StatusCode:   statusCode,
		ResponseTime: time.Since(start),
	}

	if statusCode >= 400 {
		if shot, err := page.Screenshot(false, nil); err == nil {
			path, err := f.saveScreenshot(shot)
			if err != nil {
				f.logger.Warn("screenshot save failed", "error", err)
			} else {
				result.ScreenshotURL = path
			}
		} else {
			f.logger.Warn("screenshot capture failed", "error", err)
		}
	}

	f.logger.Debug("fetch complete",
		"url", target, "final_url", finalURL, "status", statusCode, "duration", result.ResponseTime)

	return result, nil
}

// Close is a no-op: RodFetcher launches and tears down a browser per
// fetch, so there is no persistent resource to release.
func (f *RodFetcher) Close() error { return nil }

// saveScreenshot writes PNG bytes under the fetcher's screenshot
// directory and returns the written path.
func (f *RodFetcher) saveScreenshot(data []byte) (string, error) {
	if err := os.MkdirAll(f.screenshotDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.screenshotDir, uuid.NewString()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
