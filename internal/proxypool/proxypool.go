// Package proxypool tracks proxy health with a failure-counter and
// cooldown state machine: a proxy goes degraded after repeated failures
// and is given a recovery window before it's offered again. Selection
// fails open, preferring to hand out a degraded proxy over refusing to
// fetch at all.
package proxypool

import (
	"log/slog"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"
)

// BadThreshold is the failure count at which a proxy is considered
// degraded. Each failure adds one and each success subtracts one (never
// below zero), so the failures need not be consecutive.
const BadThreshold = 3

// RecoveryTime is how long after its last failure a degraded proxy
// becomes eligible again.
const RecoveryTime = 300 * time.Second

// health tracks one proxy's failure/success history.
type health struct {
	failures    int
	lastFailure time.Time
	lastSuccess time.Time
}

func (h *health) isHealthy() bool {
	return h.failures < BadThreshold
}

func (h *health) isRecovered(now time.Time) bool {
	return h.failures >= BadThreshold && now.Sub(h.lastFailure) > RecoveryTime
}

// Pool is a set of proxy URLs with per-proxy health tracking.
type Pool struct {
	mu     sync.Mutex
	urls   []*url.URL
	health map[string]*health
	logger *slog.Logger
}

// New builds a Pool from raw proxy URL strings. Unparseable entries are
// skipped and logged.
func New(rawURLs []string, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		urls:   make([]*url.URL, 0, len(rawURLs)),
		health: make(map[string]*health),
		logger: logger.With("component", "proxypool"),
	}
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil {
			p.logger.Warn("invalid proxy URL, skipping", "url", raw, "error", err)
			continue
		}
		p.urls = append(p.urls, u)
		p.health[u.String()] = &health{}
	}
	return p
}

// Select returns a proxy to use for the next fetch. Candidates are proxies
// that are currently healthy or have recovered from their cooldown; if no
// candidate is eligible, Select fails open and returns a random proxy from
// the full list. It returns ok=false only when the pool itself is empty.
func (p *Pool) Select() (*url.URL, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.urls) == 0 {
		return nil, false
	}

	now := time.Now()
	candidates := make([]*url.URL, 0, len(p.urls))
	for _, u := range p.urls {
		h := p.health[u.String()]
		if h.isHealthy() || h.isRecovered(now) {
			candidates = append(candidates, u)
		}
	}

	if len(candidates) == 0 {
		candidates = p.urls
	}

	return candidates[rand.IntN(len(candidates))], true
}

// MarkFailure increments a proxy's failure count.
func (p *Pool) MarkFailure(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.health[u.String()]
	if !ok {
		return
	}
	h.failures++
	h.lastFailure = time.Now()
	if h.failures == BadThreshold {
		p.logger.Warn("proxy degraded", "proxy", u.Host, "failures", h.failures)
	}
}

// MarkSuccess decrements a proxy's failure count (clamped at 0) and
// records the success time.
func (p *Pool) MarkSuccess(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.health[u.String()]
	if !ok {
		return
	}
	if h.failures > 0 {
		h.failures--
	}
	h.lastSuccess = time.Now()
}

// Stats summarizes pool health for metrics/diagnostics.
type Stats struct {
	Total    int
	Healthy  int
	Degraded int
}

// Stats returns aggregate health counts across the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Total: len(p.urls)}
	now := time.Now()
	for _, u := range p.urls {
		h := p.health[u.String()]
		if h.isHealthy() || h.isRecovered(now) {
			s.Healthy++
		} else {
			s.Degraded++
		}
	}
	return s
}
