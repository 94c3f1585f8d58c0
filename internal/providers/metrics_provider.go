package providers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gsd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncWebhookCalls(event string)
	IncWebhookFailures(event string)
	IncEpisodeInserts(status string)
	IncMergeComputations()
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	webhookCalls        *prometheus.CounterVec
	webhookFailures     *prometheus.CounterVec
	episodeInserts      *prometheus.CounterVec
	mergeComputations   prometheus.Counter
	persistenceDuration prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncWebhookCalls(event string) {
	m.webhookCalls.WithLabelValues(event).Inc()
}

func (m *MetricsProvider) IncWebhookFailures(event string) {
	m.webhookFailures.WithLabelValues(event).Inc()
}

func (m *MetricsProvider) IncEpisodeInserts(status string) {
	m.episodeInserts.WithLabelValues(status).Inc()
}

func (m *MetricsProvider) IncMergeComputations() {
	m.mergeComputations.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gsd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gsd_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gsd_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		webhookCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_webhook_calls_total",
			Help: "Total number of outbound webhook deliveries",
		}, []string{"event"}),

		webhookFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_webhook_failures_total",
			Help: "Total number of failed webhook deliveries",
		}, []string{"event"}),

		episodeInserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_episode_inserts_total",
			Help: "Episode insert outcomes by status",
		}, []string{"status"}),

		mergeComputations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gsd_merge_computations_total",
			Help: "Total number of merged glucose view computations",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gsd_persistence_duration_seconds",
			Help:    "Duration of snapshot persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncWebhookCalls(_ string)                         {}
func (n *noopMetrics) IncWebhookFailures(_ string)                      {}
func (n *noopMetrics) IncEpisodeInserts(_ string)                       {}
func (n *noopMetrics) IncMergeComputations()                            {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func MetricsMiddleware(metrics MetricsProviderInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		metrics.IncRequestsTotal(r.URL.Path, sw.status)
		metrics.ObserveRequestDuration(r.URL.Path, duration)
	})
}
