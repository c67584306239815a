package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry rather than the global default one.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	RateLimited      prometheus.Counter
	FavoritesChanges *prometheus.CounterVec
	ReconciledDrifts prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route, method and status."},
			[]string{"route", "method", "status"},
		),
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"route", "method"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "http_requests_rate_limited_total", Help: "Requests rejected by the rate limiter."},
		),
		FavoritesChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "article_favorite_changes_total", Help: "Favorite and unfavorite requests served."},
			[]string{"action"},
		),
		ReconciledDrifts: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "favorites_count_corrections_total", Help: "Articles whose favorites count was corrected by the reconcile job."},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPLatency,
		m.RateLimited,
		m.FavoritesChanges,
		m.ReconciledDrifts,
	)
	return m
}

// ObserveRequest records one served request. route is the router pattern, not the
// raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
