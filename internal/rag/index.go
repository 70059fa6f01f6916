package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

// defaultBatchSize bounds the number of texts sent in one embedding request.
const defaultBatchSize = 64

// Index is the article-level vector index. It embeds article text with the
// index embedding slot and delegates storage and search to a VectorStore.
// Writes are serialised; reads may run concurrently.
type Index struct {
	// embedder converts article and query text to vectors.
	embedder Embedder

	// store persists vectors and performs nearest-neighbour search.
	store VectorStore

	// batchSize is the maximum number of texts per Embed call on upsert.
	batchSize int

	// writeMu serialises Upsert calls.
	writeMu sync.Mutex
}

// IndexConfig holds optional Index settings.
type IndexConfig struct {
	// BatchSize overrides the embedding batch size. Defaults to 64.
	BatchSize int
}

// NewIndex constructs an Index from the given Embedder and VectorStore.
func NewIndex(embedder Embedder, store VectorStore, cfg *IndexConfig) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg == nil {
		cfg = &IndexConfig{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Index{embedder: embedder, store: store, batchSize: cfg.BatchSize}, nil
}

// DocumentID derives the stored ID of an article from its link and title.
// Re-upserting an unchanged article therefore replaces its entry instead of
// adding a duplicate.
func DocumentID(a news.Article) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.Link+"\n"+a.Title)).String()
}

// Upsert embeds each article's title and body and stores it with its date,
// journal and link.
func (x *Index) Upsert(ctx context.Context, articles []news.Article) error {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	log := logging.FromContext(ctx)

	for start := 0; start < len(articles); start += x.batchSize {
		end := min(start+x.batchSize, len(articles))
		batch := articles[start:end]

		texts := make([]string, len(batch))
		docs := make([]Document, len(batch))
		for i, a := range batch {
			texts[i] = a.IndexText()
			docs[i] = Document{
				ID:   DocumentID(a),
				Text: texts[i],
				Metadata: map[string]string{
					MetaDate:    a.Date,
					MetaJournal: a.Journal,
					MetaLink:    a.Link,
				},
			}
		}

		vecs, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("rag: embed articles %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("rag: expected %d embeddings, got %d", len(batch), len(vecs))
		}

		if err := x.store.Upsert(ctx, docs, vecs); err != nil {
			return fmt.Errorf("rag: store articles %d-%d: %w", start, end, err)
		}

		log.Debug("rag: batch indexed",
			slog.Int("from", start),
			slog.Int("to", end),
		)
	}
	return nil
}

// Query returns up to k indexed documents nearest to text. A non-empty
// journal restricts results to that publisher. An empty index yields an
// empty slice.
func (x *Index) Query(ctx context.Context, text string, k int, journal string) ([]Document, error) {
	if k <= 0 {
		return []Document{}, nil
	}

	vecs, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := x.store.Search(ctx, vecs[0], k, Filter{Journal: journal})
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	// A journal filter only ever narrows the result set.
	if journal != "" {
		kept := docs[:0]
		for _, d := range docs {
			if d.Journal() == journal {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	return docs, nil
}

// Count returns the number of indexed documents.
func (x *Index) Count(ctx context.Context) (int, error) {
	return x.store.Count(ctx)
}

// Ping reports whether the underlying store is reachable.
func (x *Index) Ping(ctx context.Context) error {
	return x.store.Ping(ctx)
}

// Close releases the underlying store.
func (x *Index) Close() error {
	return x.store.Close()
}
