package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/newsrag-go/internal/ingestion"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/orchestrator"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout bounds the whole response. Collection and batch summaries
	// can take minutes, so the default is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the base logger. If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers are the dependency probes run by GET /api/ready.
	Pingers []Pinger
	// RateLimit is the sustained per-IP request rate on model-backed routes
	// (requests/second). Defaults to 1.
	RateLimit float64
	// RateBurst is the per-IP burst on model-backed routes. Defaults to 5.
	RateBurst int
	// MetricsRegistry receives the server's collectors. Defaults to
	// [prometheus.DefaultRegisterer].
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// [prometheus.DefaultGatherer].
	MetricsGatherer prometheus.Gatherer
	// CollectKeywords are the keywords GET /collect-and-store gathers. Empty
	// means the collector's defaults.
	CollectKeywords []string
}

// newsService is the orchestrator surface the handlers call.
// *orchestrator.Service satisfies it; tests inject a fake.
type newsService interface {
	BatchKeywordSummary(ctx context.Context, keywords []string) []orchestrator.KeywordResult
	ExpertReply(ctx context.Context, query, journal string) (string, []news.SummaryItem, error)
	Search(ctx context.Context, query string) ([]news.SummaryItem, error)
	StaticKeywordSummary(ctx context.Context, keyword string, k int, journal string) ([]news.SummaryItem, error)
	Collect(ctx context.Context, keywords []string, total int, progress func(string)) (ingestion.Stats, error)
}

// Server exposes a newsService over HTTP.
type Server struct {
	svc        newsService
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	pingers    []Pinger
	metrics    *serverMetrics
	// stopRL stops the rate limiter's eviction goroutine.
	stopRL func()
}

type keywordSummaryResponse struct {
	Results []orchestrator.KeywordResult `json:"results"`
}

type collectResponse struct {
	StoredCount int    `json:"stored_count"`
	Message     string `json:"message"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []news.SummaryItem `json:"results"`
}

type chatResponse struct {
	Query      string             `json:"query"`
	Answer     string             `json:"answer"`
	References []news.SummaryItem `json:"references"`
}

type staticSummaryResponse struct {
	Keyword  string             `json:"keyword"`
	Articles []news.SummaryItem `json:"articles"`
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Detail string `json:"detail"`
}
