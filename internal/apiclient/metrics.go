package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records client request outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetrics registers the client collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_client_requests_total",
				Help: "Total logical API client calls by outcome",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_client_request_duration_seconds",
				Help:    "Duration of logical API client calls, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_client_retries_total",
				Help: "Total retry attempts",
			},
			[]string{"method"},
		),
		cacheHits: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "folio_client_cache_hits_total",
				Help: "GET requests served from the client cache",
			},
		),
		cacheMisses: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "folio_client_cache_misses_total",
				Help: "GET requests that missed the client cache",
			},
		),
	}
}

func (m *Metrics) recordRequest(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if code := StatusOf(err); code != 0 {
			status = strconv.Itoa(code)
		}
	}
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) recordRetry(method string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
