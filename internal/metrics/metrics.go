// Package metrics records Prometheus metrics for signed requests.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeException = "exception"
	OutcomeAborted   = "aborted"
)

// Metrics holds the request collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	uploaded *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Collectors already
// registered by another Metrics on the same registry are shared.
func New(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3sig",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of signed requests, partitioned by method and outcome.",
	}, []string{"method", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3sig",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Histogram of signed request latencies.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	uploaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3sig",
		Subsystem: "client",
		Name:      "upload_bytes_total",
		Help:      "Total number of request body bytes written.",
	}, []string{"method"})

	return &Metrics{
		requests: register(reg, requests),
		latency:  register(reg, latency),
		uploaded: register(reg, uploaded),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Observe records one finished request.
func (m *Metrics) Observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Uploaded adds n body bytes written for method.
func (m *Metrics) Uploaded(method string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploaded.WithLabelValues(method).Add(float64(n))
}
