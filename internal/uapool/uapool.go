// Package uapool hands out randomized desktop user-agent strings and the
// matching Accept/Accept-Language headers, so a retried fetch presents a
// different browser fingerprint on each attempt.
package uapool

import (
	"math/rand/v2"
	"net/http"
)

// Pool is a static set of realistic desktop user agents.
type Pool struct {
	agents []string
	lang   string
}

// defaultAgents seeds from common desktop Chrome/Firefox/Safari builds.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
}

// New returns a Pool seeded with the default agent list. lang is the
// Accept-Language header value to advertise, e.g. "en-IN,en;q=0.9".
func New(lang string) *Pool {
	if lang == "" {
		lang = "en-IN,en;q=0.9"
	}
	agents := make([]string, len(defaultAgents))
	copy(agents, defaultAgents)
	return &Pool{agents: agents, lang: lang}
}

// Pick returns a random user agent string from the pool.
func (p *Pool) Pick() string {
	return p.agents[rand.IntN(len(p.agents))]
}

// Headers returns a fresh http.Header carrying a randomly picked
// User-Agent plus the pool's Accept/Accept-Encoding/Accept-Language
// defaults, matching what a real desktop browser sends.
func (p *Pool) Headers() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", p.Pick())
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Accept-Language", p.lang)
	return h
}
