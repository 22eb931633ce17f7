// Package observability exposes the fleet's Prometheus metrics and wires
// the /metrics HTTP endpoint each process (scheduler, worker) serves on
// its own configured port.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SchedulerMetrics are the counters/gauges the Scheduler process exposes.
type SchedulerMetrics struct {
	CyclesTotal      prometheus.Counter
	LastTargetsCount prometheus.Gauge
	registry         *prometheus.Registry
}

// NewSchedulerMetrics builds and registers the Scheduler's metrics against
// their own registry, so multiple instances (e.g. in tests) never collide
// on prometheus's global default registry.
func NewSchedulerMetrics() *SchedulerMetrics {
	reg := prometheus.NewRegistry()
	m := &SchedulerMetrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_cycles_total",
			Help: "Scheduler cycles completed.",
		}),
		LastTargetsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_targets_count",
			Help: "Number of targets enqueued in the last cycle.",
		}),
		registry: reg,
	}
	reg.MustRegister(m.CyclesTotal, m.LastTargetsCount)
	return m
}

// Serve starts a blocking HTTP server exposing /metrics on addr.
func (m *SchedulerMetrics) Serve(addr string) error {
	return serveRegistry(addr, m.registry)
}

// WorkerMetrics are the counters/gauges the Worker process exposes, all
// labelled by the target domain.
type WorkerMetrics struct {
	SuccessTotal        *prometheus.CounterVec
	FailureTotal        *prometheus.CounterVec
	CaptchaTotal        *prometheus.CounterVec
	LastDurationSeconds *prometheus.GaugeVec
	registry            *prometheus.Registry
}

// NewWorkerMetrics builds and registers the Worker's metrics.
func NewWorkerMetrics() *WorkerMetrics {
	reg := prometheus.NewRegistry()
	m := &WorkerMetrics{
		SuccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_success_total",
			Help: "Successful scrapes.",
		}, []string{"domain"}),
		FailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_failure_total",
			Help: "Failed scrapes.",
		}, []string{"domain"}),
		CaptchaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_captcha_total",
			Help: "Scrapes that hit a CAPTCHA challenge.",
		}, []string{"domain"}),
		LastDurationSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scraper_last_duration_seconds",
			Help: "Duration of the most recent scrape.",
		}, []string{"domain"}),
		registry: reg,
	}
	reg.MustRegister(m.SuccessTotal, m.FailureTotal, m.CaptchaTotal, m.LastDurationSeconds)
	return m
}

// Serve starts a blocking HTTP server exposing /metrics on addr.
func (m *WorkerMetrics) Serve(addr string) error {
	return serveRegistry(addr, m.registry)
}

func serveRegistry(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
