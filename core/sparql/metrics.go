package sparql

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the endpoint client's Prometheus collectors.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	cacheHits prometheus.Counter
	rows      prometheus.Histogram
}

// NewMetrics registers the client collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: method (GET, POST), outcome (ok, request, status, decode)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wealthkg",
			Subsystem: "sparql",
			Name:      "requests_total",
			Help:      "SPARQL endpoint requests by method and outcome",
		}, []string{"method", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wealthkg",
			Subsystem: "sparql",
			Name:      "request_duration_seconds",
			Help:      "SPARQL endpoint round trip latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wealthkg",
			Subsystem: "sparql",
			Name:      "cache_hits_total",
			Help:      "Responses served from the response cache",
		}),
		rows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wealthkg",
			Subsystem: "sparql",
			Name:      "result_rows",
			Help:      "Bindings per decoded response",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 6),
		}),
	}
}

func (m *Metrics) observeRequest(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) observeRows(n int) {
	if m == nil {
		return
	}
	m.rows.Observe(float64(n))
}
