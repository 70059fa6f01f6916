package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/newsrag-go/internal/embedder"
	"github.com/54b3r/newsrag-go/internal/ingestion"
	"github.com/54b3r/newsrag-go/internal/naver"
	"github.com/54b3r/newsrag-go/internal/orchestrator"
	"github.com/54b3r/newsrag-go/internal/provider"
	"github.com/54b3r/newsrag-go/internal/rag"
	"github.com/54b3r/newsrag-go/internal/server"
	"github.com/54b3r/newsrag-go/internal/similarity"
	"github.com/54b3r/newsrag-go/internal/summarizer"
	"github.com/54b3r/newsrag-go/internal/tracing"
)

// Defaults for on-disk artifacts.
const (
	defaultIndexDir = "./news_index"
	defaultSnapshot = "data/news_data.json"
	defaultCorpus   = "data/news_data_500.json"
)

// needs selects the optional parts of the service a command requires. A
// required part that fails to build is an error; an optional one is
// logged and left out.
type needs struct {
	collector bool
	static    bool
}

// app is the wired dependency graph shared by all commands.
type app struct {
	svc         *orchestrator.Service
	index       *rag.Index
	backend     string
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	canCollect  bool
	close       func()
}

// buildApp constructs every collaborator from the environment. The
// returned app's close must be called on exit.
func buildApp(ctx context.Context, log *slog.Logger, n needs) (*app, error) {
	flush := tracing.Setup(log)
	closers := []func(){flush}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	index, backend, closeIndex, err := buildIndex(ctx, log)
	if err != nil {
		cleanup()
		return nil, err
	}
	closers = append(closers, closeIndex)

	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	summ, err := summarizer.New(&summarizer.Config{ChatModel: chatModel})
	if err != nil {
		cleanup()
		return nil, err
	}

	cfg := &orchestrator.Config{
		Index:      index,
		Summarizer: summ,
		CorpusPath: getEnvOrDefault("NEWSRAG_CORPUS", defaultCorpus),
		Workers:    getEnvInt("NEWSRAG_WORKERS", orchestrator.DefaultWorker),
	}

	if ranker, err := buildRanker(ctx, log); err != nil {
		if n.static {
			cleanup()
			return nil, err
		}
		log.Warn("static corpus mode disabled", slog.Any("error", err))
	} else {
		cfg.Ranker = ranker
	}

	if collector, err := buildCollector(index); err != nil {
		if n.collector {
			cleanup()
			return nil, err
		}
		log.Warn("collection disabled", slog.Any("error", err))
	} else {
		cfg.Collector = collector
	}

	svc, err := orchestrator.New(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &app{
		svc:         svc,
		index:       index,
		backend:     backend,
		chatModel:   chatModel,
		providerCfg: providerCfg,
		canCollect:  cfg.Collector != nil,
		close:       cleanup,
	}, nil
}

// buildIndex opens the vector store selected by VECTOR_BACKEND (sqlite or
// qdrant) behind an Index using the index embedding slot.
func buildIndex(ctx context.Context, log *slog.Logger) (*rag.Index, string, func(), error) {
	slot := embedder.SlotIndex
	if err := embedder.Validate(log, slot); err != nil {
		return nil, "", nil, err
	}
	emb, err := embedder.NewFromEnv(ctx, slot)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to initialise index embedder: %w", err)
	}

	var store rag.VectorStore
	backend := strings.ToLower(getEnvOrDefault("VECTOR_BACKEND", "sqlite"))
	switch backend {
	case "sqlite":
		dir := getEnvOrDefault("NEWSRAG_INDEX_DIR", defaultIndexDir)
		s, err := rag.OpenSQLite(dir)
		if err != nil {
			return nil, "", nil, err
		}
		store = s
		log.Info("index: sqlite store ready", slog.String("dir", dir))
	case "qdrant":
		qcfg := &rag.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "news"),
			VectorSize: uint64(slot.Dimensions()), //nolint:gosec // dimensions are small positive ints
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		}
		s, err := rag.NewQdrantStore(ctx, qcfg)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, err)
		}
		store = s
		log.Info("index: qdrant store ready",
			slog.String("host", qcfg.Host),
			slog.String("collection", qcfg.Collection),
			slog.Uint64("dimensions", qcfg.VectorSize),
		)
	default:
		return nil, "", nil, fmt.Errorf("unknown VECTOR_BACKEND %q (valid: sqlite, qdrant)", backend)
	}

	index, err := rag.NewIndex(emb, store, nil)
	if err != nil {
		_ = store.Close()
		return nil, "", nil, err
	}
	closeIndex := func() {
		if err := index.Close(); err != nil {
			log.Warn("index: close failed", slog.Any("error", err))
		}
	}
	return index, backend, closeIndex, nil
}

// buildRanker constructs the similarity engine over the fallback slot.
func buildRanker(ctx context.Context, log *slog.Logger) (*similarity.Engine, error) {
	slot := embedder.SlotFallback
	if err := embedder.Validate(log, slot); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise fallback embedder: %w", err)
	}
	return similarity.NewEngine(emb)
}

// buildCollector wires the Naver client and scraper into a Collector that
// writes to index.
func buildCollector(index *rag.Index) (*ingestion.Collector, error) {
	client, err := naver.NewClient(&naver.Config{
		ClientID:     os.Getenv("NAVER_CLIENT_ID"),
		ClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),
	})
	if err != nil {
		return nil, err
	}
	return ingestion.NewCollector(&ingestion.CollectorConfig{
		Source:       client,
		Fetcher:      naver.NewScraper(0),
		Indexer:      index,
		SnapshotPath: getEnvOrDefault("NEWSRAG_SNAPSHOT", defaultSnapshot),
	})
}

// buildPingers returns readiness probes for the chat model and the index.
func buildPingers(a *app) []server.Pinger {
	return []server.Pinger{
		server.NewLLMPinger(a.chatModel, provider.NewHealthCheck(a.providerCfg, nil), string(a.providerCfg.Backend)),
		server.NewIndexPinger(a.index, a.backend),
	}
}

// collectKeywords reads NEWSRAG_KEYWORDS as a comma-separated list.
func collectKeywords() []string {
	var out []string
	for _, k := range strings.Split(os.Getenv("NEWSRAG_KEYWORDS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// printJSON writes v as indented JSON without HTML escaping.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ignoreCanceled maps context cancellation to a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
