package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports HTTP and workflow counters through Prometheus.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	workflows *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil registerer yields a no-op
// Metrics value.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Errors rendered to clients by code.",
	}, []string{"route", "method", "code"})
	workflows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_workflow_total",
		Help: "Enrollment workflow outcomes by operation.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(requests, latency, errs, workflows)
	return &Metrics{
		requests:  requests,
		latency:   latency,
		errors:    errs,
		workflows: workflows,
	}
}

// RecordRequest counts a finished request and observes its latency.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(route), method, normalizeLabel(code)).Inc()
}

// RecordOutcome counts a workflow result; outcome is "ok" or an error code.
func (m *Metrics) RecordOutcome(operation, outcome string) {
	if m == nil || m.workflows == nil {
		return
	}
	m.workflows.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
