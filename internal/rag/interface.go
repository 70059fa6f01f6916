// Package rag implements the persistent vector index behind newsrag's
// retrieval path: embedding storage, k-nearest-neighbour search with an
// optional publisher filter, and the Index type that ties an Embedder to a
// VectorStore. Concrete stores (SQLite, Qdrant) satisfy VectorStore so the
// orchestration layer never depends on a specific backend.
package rag

import (
	"context"

	"github.com/54b3r/newsrag-go/internal/news"
)

// Metadata keys stored alongside every indexed article.
const (
	MetaDate    = "date"
	MetaJournal = "journal"
	MetaLink    = "link"
)

// Document is a unit of stored or retrieved knowledge.
type Document struct {
	// ID is the unique identifier of the stored entry.
	ID string

	// Text is the indexed text: article title and body separated by a newline.
	Text string

	// Metadata holds the article's date, journal and link.
	Metadata map[string]string

	// Score is the cosine similarity to the query, set on retrieval only.
	Score float32
}

// Title returns the article title, i.e. the first line of Text.
func (d Document) Title() string { return news.FirstLine(d.Text) }

// Link returns the article URL.
func (d Document) Link() string { return d.Metadata[MetaLink] }

// Journal returns the article's publisher.
func (d Document) Journal() string { return d.Metadata[MetaJournal] }

// Filter narrows a search. Zero value means no filtering.
type Filter struct {
	// Journal restricts results to documents whose journal metadata equals
	// this value exactly.
	Journal string
}

// VectorStore is the interface for persisting and searching document
// embeddings. Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores a batch of documents with their pre-computed embeddings,
	// replacing any entry with the same ID. embeddings[i] belongs to docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns at most topK documents ordered by descending similarity
	// to queryEmbedding. An empty store yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
