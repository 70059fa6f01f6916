// Package ingestion turns news search hits into indexed articles. It cleans
// and deduplicates raw hits, resolves their publishers, scrapes article
// bodies and hands the result to the vector index. A JSON snapshot of every
// collected batch is written for recovery.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

// Source returns raw search hits for a keyword.
type Source interface {
	Search(ctx context.Context, keyword string, total int) ([]news.RawItem, error)
}

// ContentFetcher returns the plain-text body of an article page.
type ContentFetcher interface {
	Content(ctx context.Context, link string) (string, error)
}

// Indexer stores normalised articles.
type Indexer interface {
	Upsert(ctx context.Context, articles []news.Article) error
}

// DefaultKeywords are collected when the caller passes none.
var DefaultKeywords = []string{"경제", "IT"}

const (
	// DefaultTotal is the number of hits requested per keyword.
	DefaultTotal = 100

	defaultScrapeConcurrency = 4
)

// CollectorConfig holds the dependencies and settings of a Collector.
type CollectorConfig struct {
	Source   Source
	Fetcher  ContentFetcher
	Indexer  Indexer
	Resolver PublisherResolver

	// SnapshotPath is where each collected batch is written as JSON.
	// Empty disables the snapshot.
	SnapshotPath string

	// ScrapeConcurrency bounds concurrent page fetches. Defaults to 4.
	ScrapeConcurrency int
}

// Stats summarises one collection run.
type Stats struct {
	// Fetched is the number of search hits returned across all keywords.
	Fetched int
	// Scraped is the number of hits whose body was retrieved.
	Scraped int
	// Stored is the number of articles written to the index.
	Stored int
}

// Collector runs the search, scrape, normalise, snapshot and index flow.
type Collector struct {
	source       Source
	fetcher      ContentFetcher
	indexer      Indexer
	resolver     PublisherResolver
	snapshotPath string
	concurrency  int
}

// NewCollector constructs a Collector from cfg.
func NewCollector(cfg *CollectorConfig) (*Collector, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("ingestion: source must not be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("ingestion: content fetcher must not be nil")
	}
	if cfg.Indexer == nil {
		return nil, fmt.Errorf("ingestion: indexer must not be nil")
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewTableResolver(nil)
	}
	concurrency := cfg.ScrapeConcurrency
	if concurrency <= 0 {
		concurrency = defaultScrapeConcurrency
	}
	return &Collector{
		source:       cfg.Source,
		fetcher:      cfg.Fetcher,
		indexer:      cfg.Indexer,
		resolver:     resolver,
		snapshotPath: cfg.SnapshotPath,
		concurrency:  concurrency,
	}, nil
}

// Collect gathers up to total hits per keyword, scrapes their bodies and
// indexes the normalised articles. A keyword whose search fails keeps the
// hits gathered before the failure; Collect fails only when every keyword
// failed, or when the index write fails. Progress messages are reported via
// the optional progress callback.
func (c *Collector) Collect(ctx context.Context, keywords []string, total int, progress func(msg string)) (Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if total <= 0 {
		total = DefaultTotal
	}
	log := logging.FromContext(ctx)

	var (
		stats   Stats
		items   []news.RawItem
		errs    []error
		healthy int
	)
	for _, kw := range keywords {
		progress(fmt.Sprintf("searching %q", kw))
		hits, err := c.source.Search(ctx, kw, total)
		items = append(items, hits...)
		if err != nil {
			errs = append(errs, err)
			log.Warn("ingestion: keyword search incomplete",
				slog.String("keyword", kw),
				slog.Int("hits", len(hits)),
				slog.Any("error", err),
			)
			continue
		}
		healthy++
	}
	stats.Fetched = len(items)
	if healthy == 0 && len(items) == 0 {
		return stats, fmt.Errorf("ingestion: every keyword search failed: %w", errors.Join(errs...))
	}

	progress(fmt.Sprintf("scraping %d articles", len(items)))
	stats.Scraped = c.scrape(ctx, items)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("ingestion: collection cancelled: %w", err)
	}

	articles := Normalize(items, c.resolver)
	progress(fmt.Sprintf("normalised %d articles", len(articles)))

	if c.snapshotPath != "" {
		if err := news.WriteSnapshot(c.snapshotPath, articles); err != nil {
			log.Warn("ingestion: snapshot not written", slog.Any("error", err))
		}
	}

	if err := c.indexer.Upsert(ctx, articles); err != nil {
		return stats, fmt.Errorf("ingestion: index write failed: %w", err)
	}
	stats.Stored = len(articles)

	log.Info("ingestion: collection complete",
		slog.Int("fetched", stats.Fetched),
		slog.Int("scraped", stats.Scraped),
		slog.Int("stored", stats.Stored),
	)
	progress(fmt.Sprintf("stored %d articles", stats.Stored))
	return stats, nil
}

// scrape fills Content for every item whose body can be fetched and returns
// how many succeeded. Failed items keep empty content and are dropped by
// Normalize.
func (c *Collector) scrape(ctx context.Context, items []news.RawItem) int {
	log := logging.FromContext(ctx)
	ok := make([]bool, len(items))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			content, err := c.fetcher.Content(ctx, items[i].Link)
			if err != nil {
				log.Debug("ingestion: scrape failed",
					slog.String("link", items[i].Link),
					slog.Any("error", err),
				)
				return nil
			}
			items[i].Content = content
			ok[i] = content != ""
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, v := range ok {
		if v {
			n++
		}
	}
	return n
}
