// Package fetcher renders e-commerce product pages through a headless,
// stealth-patched browser and returns the raw HTML plus fetch metadata.
// Internals (which browser, how stealth is applied) are private; callers
// only see the PageFetcher contract.
package fetcher

import (
	"context"
	"net/url"
	"time"
)

// Options configures a single fetch.
type Options struct {
	// WaitSelector, if set, is awaited (up to 10s) after navigation
	// before the page content is read.
	WaitSelector string

	// Timeout bounds the whole navigation; zero uses the fetcher default.
	Timeout time.Duration

	// Proxy is the upstream proxy to route this fetch through, or nil
	// for a direct connection.
	Proxy *url.URL

	// UserAgent overrides the browser's default user agent string.
	UserAgent string
}

// Result is what a successful (or unsuccessful-but-rendered) fetch
// returns: the rendered HTML, response metadata, and an optional
// screenshot captured on error-like status codes.
type Result struct {
	HTML          string
	FinalURL      string
	StatusCode    int
	ResponseTime  time.Duration
	ScreenshotURL string
}

// PageFetcher renders a URL in a browser and returns its content.
type PageFetcher interface {
	Fetch(ctx context.Context, target string, opts Options) (*Result, error)
	Close() error
}
