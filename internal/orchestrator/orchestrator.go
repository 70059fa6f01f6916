// Package orchestrator composes retrieval and summarisation into the
// operations newsrag exposes: per-keyword batch summaries, expert answers,
// query search, static-corpus summaries and collection.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/newsrag-go/internal/ingestion"
	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/rag"
	"github.com/54b3r/newsrag-go/internal/similarity"
	"github.com/54b3r/newsrag-go/internal/summarizer"
)

// Result sizes and pool width.
const (
	KeywordTopK   = 4
	ExpertTopK    = 3
	SearchTopK    = 5
	StaticTopK    = 4
	DefaultWorker = 5
)

// KeywordFailed is the error text of a keyword whose pipeline failed.
const KeywordFailed = "요약 실패"

var (
	// ErrStaticUnavailable is returned when no ranker or corpus is configured.
	ErrStaticUnavailable = errors.New("orchestrator: static corpus mode is not configured")
	// ErrCollectUnavailable is returned when no collector is configured.
	ErrCollectUnavailable = errors.New("orchestrator: collection is not configured")
)

// Retriever queries the vector index.
type Retriever interface {
	Query(ctx context.Context, text string, k int, journal string) ([]rag.Document, error)
}

// Summarizer produces summaries and answers. Implementations never fail;
// they return sentinel strings instead.
type Summarizer interface {
	SummarizeText(ctx context.Context, text string) string
	SummarizeFromURL(ctx context.Context, url string) string
	AnswerExpertQuery(ctx context.Context, question string, refs []news.SummaryItem) string
}

// Ranker ranks an in-memory corpus against a keyword.
type Ranker interface {
	RankByKeyword(ctx context.Context, keyword string, corpus []news.Article, k int, journal string) ([]news.Article, error)
}

// Collector gathers and indexes fresh articles.
type Collector interface {
	Collect(ctx context.Context, keywords []string, total int, progress func(string)) (ingestion.Stats, error)
}

// Config holds the dependencies of a Service. Index and Summarizer are
// required; the rest enable optional operations.
type Config struct {
	Index      Retriever
	Summarizer Summarizer
	Ranker     Ranker
	Collector  Collector

	// CorpusPath is the snapshot file ranked in static mode.
	CorpusPath string

	// Workers bounds concurrent keyword pipelines. Defaults to 5.
	Workers int
}

// Service is safe for concurrent use.
type Service struct {
	index      Retriever
	summarizer Summarizer
	ranker     Ranker
	collector  Collector
	corpusPath string
	workers    int
}

// New constructs a Service from cfg.
func New(cfg *Config) (*Service, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("orchestrator: index must not be nil")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("orchestrator: summarizer must not be nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorker
	}
	return &Service{
		index:      cfg.Index,
		summarizer: cfg.Summarizer,
		ranker:     cfg.Ranker,
		collector:  cfg.Collector,
		corpusPath: cfg.CorpusPath,
		workers:    workers,
	}, nil
}

// BatchKeywordSummary runs one retrieve-and-summarise pipeline per keyword on
// a bounded pool. It returns exactly one result per keyword, in input order.
// A keyword whose retrieval fails, or whose pipeline panics, yields an error
// result; other keywords are unaffected.
func (s *Service) BatchKeywordSummary(ctx context.Context, keywords []string) []KeywordResult {
	results := make([]KeywordResult, len(keywords))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, kw := range keywords {
		g.Go(func() error {
			results[i] = s.keywordResult(ctx, kw)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// keywordResult runs a single keyword pipeline and converts any failure,
// including a panic, into an error result.
func (s *Service) keywordResult(ctx context.Context, keyword string) (res KeywordResult) {
	log := logging.FromContext(ctx).With(slog.String("keyword", keyword))
	defer func() {
		if r := recover(); r != nil {
			log.Error("orchestrator: keyword pipeline panicked", slog.Any("panic", r))
			res = KeywordResult{Keyword: keyword, Error: KeywordFailed}
		}
	}()

	items, err := s.summarizeRetrieved(ctx, keyword, KeywordTopK, "")
	if err != nil {
		log.Warn("orchestrator: keyword pipeline failed", slog.Any("error", err))
		return KeywordResult{Keyword: keyword, Error: KeywordFailed}
	}
	return KeywordResult{Keyword: keyword, Articles: items}
}

// ExpertReply answers query from the three nearest articles, optionally
// restricted to one journal. When nothing is retrieved it returns
// summarizer.SentinelNoRelatedNews with no references and does not call the
// model. Only an index failure is returned as an error.
func (s *Service) ExpertReply(ctx context.Context, query, journal string) (string, []news.SummaryItem, error) {
	refs, err := s.summarizeRetrieved(ctx, query, ExpertTopK, journal)
	if err != nil {
		return "", nil, err
	}
	if len(refs) == 0 {
		return summarizer.SentinelNoRelatedNews, []news.SummaryItem{}, nil
	}
	return s.summarizer.AnswerExpertQuery(ctx, query, refs), refs, nil
}

// Search returns the five articles nearest to query, each summarised from
// its live page.
func (s *Service) Search(ctx context.Context, query string) ([]news.SummaryItem, error) {
	docs, err := s.index.Query(ctx, query, SearchTopK, "")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: search %q: %w", query, err)
	}

	items := make([]news.SummaryItem, len(docs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, d := range docs {
		g.Go(func() error {
			items[i] = news.SummaryItem{
				Title:   d.Title(),
				URL:     d.Link(),
				Summary: s.summarizer.SummarizeFromURL(ctx, d.Link()),
			}
			return nil
		})
	}
	_ = g.Wait()
	return items, nil
}

// StaticKeywordSummary ranks the snapshot corpus against keyword with the
// similarity engine and summarises the top k articles that have content.
func (s *Service) StaticKeywordSummary(ctx context.Context, keyword string, k int, journal string) ([]news.SummaryItem, error) {
	if s.ranker == nil || s.corpusPath == "" {
		return nil, ErrStaticUnavailable
	}
	if k <= 0 {
		k = StaticTopK
	}

	corpus, err := similarity.LoadCorpus(s.corpusPath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	ranked, err := s.ranker.RankByKeyword(ctx, keyword, corpus, k, journal)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: rank %q: %w", keyword, err)
	}

	items := make([]news.SummaryItem, 0, len(ranked))
	for _, a := range ranked {
		if strings.TrimSpace(a.Content) == "" {
			continue
		}
		items = append(items, news.SummaryItem{
			Title:   a.Title,
			URL:     a.Link,
			Summary: s.summarizer.SummarizeText(ctx, a.Content),
		})
	}
	return items, nil
}

// Collect gathers and indexes articles for keywords. Empty keywords and a
// non-positive total fall back to the collector's defaults.
func (s *Service) Collect(ctx context.Context, keywords []string, total int, progress func(string)) (ingestion.Stats, error) {
	if s.collector == nil {
		return ingestion.Stats{}, ErrCollectUnavailable
	}
	return s.collector.Collect(ctx, keywords, total, progress)
}

// summarizeRetrieved queries the index for text and summarises each
// non-blank document in rank order.
func (s *Service) summarizeRetrieved(ctx context.Context, text string, k int, journal string) ([]news.SummaryItem, error) {
	docs, err := s.index.Query(ctx, text, k, journal)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: retrieve %q: %w", text, err)
	}

	items := make([]news.SummaryItem, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		items = append(items, news.SummaryItem{
			Title:   d.Title(),
			URL:     d.Link(),
			Summary: s.summarizer.SummarizeText(ctx, d.Text),
		})
	}
	return items, nil
}
