package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/newsrag-go/internal/orchestrator"
)

const metricsNamespace = "newsrag"

// serverMetrics holds the collectors owned by one Server. They register
// against the configured registry so tests stay hermetic.
type serverMetrics struct {
	// httpRequestsTotal counts requests by method, handler and status code.
	httpRequestsTotal *prometheus.CounterVec
	// httpDurationSeconds records request latency by method and handler.
	// Model-backed routes dominate the upper buckets.
	httpDurationSeconds *prometheus.HistogramVec
	// keywordResultsTotal counts keyword pipeline outcomes: ok or error.
	keywordResultsTotal *prometheus.CounterVec
	// articlesStored counts articles written by on-demand collection.
	articlesStored prometheus.Counter
	// rateLimitedTotal counts requests rejected with 429.
	rateLimitedTotal prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled, partitioned by method, handler and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"method", "handler"}),

		keywordResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "keyword",
			Name:      "results_total",
			Help:      "Keyword summary pipelines completed, partitioned by outcome.",
		}, []string{"outcome"}),

		articlesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "collect",
			Name:      "articles_stored_total",
			Help:      "Articles indexed through GET /collect-and-store.",
		}),

		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
	}
}

// instrument records count and latency for h under the handler label name.
func (m *serverMetrics) instrument(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rw, r)
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
	})
}

func (m *serverMetrics) observeKeyword(res orchestrator.KeywordResult) {
	outcome := "ok"
	if res.Failed() {
		outcome = "error"
	}
	m.keywordResultsTotal.WithLabelValues(outcome).Inc()
}
