// Package similarity ranks a static article corpus against a keyword with
// in-memory cosine similarity. It backs newsrag's static-corpus mode and is
// independent of the persistent vector index: it uses its own embedding
// model and recomputes every embedding on each call.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

// Embedder converts texts into vectors. rag.Embedder implementations
// satisfy it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Scored is an article with its similarity to the keyword.
type Scored struct {
	Article news.Article
	Score   float64
}

// defaultBatchSize bounds the number of corpus texts per Embed call.
// Gemini rejects batches over 100.
const defaultBatchSize = 64

// Engine ranks corpora with a dedicated embedding model.
type Engine struct {
	embedder  Embedder
	batchSize int
}

// NewEngine constructs an Engine. The embedder must not be the one backing
// the vector index unless both slots are configured with the same model.
func NewEngine(embedder Embedder) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("similarity: embedder must not be nil")
	}
	return &Engine{embedder: embedder, batchSize: defaultBatchSize}, nil
}

// RankByKeyword returns the k articles of corpus most similar to keyword,
// ordered by descending score with ties kept in corpus order. When journal
// is non-empty only articles from that publisher are ranked.
func (e *Engine) RankByKeyword(ctx context.Context, keyword string, corpus []news.Article, k int, journal string) ([]news.Article, error) {
	scored, err := e.Score(ctx, keyword, corpus, k, journal)
	if err != nil {
		return nil, err
	}
	out := make([]news.Article, len(scored))
	for i, s := range scored {
		out[i] = s.Article
	}
	return out, nil
}

// Score is RankByKeyword with the similarity of each returned article.
func (e *Engine) Score(ctx context.Context, keyword string, corpus []news.Article, k int, journal string) ([]Scored, error) {
	candidates := filterJournal(corpus, journal)
	if len(candidates) == 0 || k <= 0 {
		if journal != "" && len(candidates) == 0 {
			logging.FromContext(ctx).Info("similarity: no articles for journal",
				slog.String("journal", journal))
		}
		return []Scored{}, nil
	}

	qv, err := e.embedder.Embed(ctx, []string{keyword})
	if err != nil {
		return nil, fmt.Errorf("similarity: embed keyword: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("similarity: expected 1 keyword embedding, got %d", len(qv))
	}
	query := qv[0]

	scored := make([]Scored, len(candidates))
	for start := 0; start < len(candidates); start += e.batchSize {
		end := min(start+e.batchSize, len(candidates))
		batch := candidates[start:end]

		texts := make([]string, len(batch))
		for i, a := range batch {
			texts[i] = a.RankText()
		}
		vecs, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("similarity: embed corpus %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("similarity: expected %d embeddings, got %d", len(batch), len(vecs))
		}
		for i, a := range batch {
			scored[start+i] = Scored{Article: a, Score: Cosine(query, vecs[i])}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// filterJournal returns the articles published by journal, or all of them
// when journal is empty.
func filterJournal(corpus []news.Article, journal string) []news.Article {
	if journal == "" {
		return corpus
	}
	out := make([]news.Article, 0, len(corpus))
	for _, a := range corpus {
		if a.Journal == journal {
			out = append(out, a)
		}
	}
	return out
}

// LoadCorpus reads the static corpus snapshot at path.
func LoadCorpus(path string) ([]news.Article, error) {
	articles, err := news.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("similarity: load corpus: %w", err)
	}
	return articles, nil
}
