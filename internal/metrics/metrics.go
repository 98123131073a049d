package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for lookups.
const (
	OutcomeOK      = "ok"
	OutcomeNotLive = "not_live"
	OutcomeError   = "error"
)

// Metrics holds Prometheus counters and histograms for stream lookups.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	lookupsTotal     *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bililive_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bililive_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	lookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bililive_lookups_total",
		Help: "Stream lookups by outcome",
	}, []string{"outcome"})
	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bililive_upstream_requests_total",
		Help: "Requests to the Bilibili API by endpoint and result",
	}, []string{"endpoint", "result"})
	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bililive_upstream_request_duration_seconds",
		Help:    "Latency of requests to the Bilibili API",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		lookupsTotal,
		upstreamTotal,
		upstreamDuration,
	)

	return &Metrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
		lookupsTotal:     lookupsTotal,
		upstreamTotal:    upstreamTotal,
		upstreamDuration: upstreamDuration,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncLookup counts one aggregated lookup with the given outcome.
func (m *Metrics) IncLookup(outcome string) {
	m.lookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one Bilibili API request.
func (m *Metrics) ObserveUpstream(endpoint string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.upstreamTotal.WithLabelValues(endpoint, result).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
