// Package news defines the data model shared by the ingestion, retrieval,
// summarisation and transport layers of newsrag.
package news

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Article is a normalised news article. Articles are immutable once stored.
// Field order matches the recovery snapshot layout.
type Article struct {
	// Title is the headline with markup removed. It is the dedup key.
	Title string `json:"title"`
	// Date is the publication time formatted as "2006-01-02 15:04".
	Date string `json:"date"`
	// Link is the absolute URL of the article page.
	Link string `json:"link"`
	// Content is the plain-text article body.
	Content string `json:"content"`
	// Journal is the resolved publisher name.
	Journal string `json:"journal"`
}

// IndexText returns the text embedded and stored by the vector index.
func (a Article) IndexText() string {
	return a.Title + "\n" + a.Content
}

// RankText returns the text embedded by the similarity fallback engine.
func (a Article) RankText() string {
	return a.Title + " " + a.Content
}

// RawItem is a search hit as returned by the news source, before
// normalisation. Content is filled in by the article scraper.
type RawItem struct {
	Title        string `json:"title"`
	PubDate      string `json:"pubDate"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	Content      string `json:"-"`
}

// SummaryItem is one summarised article returned to callers. It is never
// persisted.
type SummaryItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// WriteSnapshot writes articles to path as an indented JSON list, creating
// the parent directory when needed. Non-ASCII text is written as-is.
func WriteSnapshot(path string, articles []Article) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("news: create snapshot dir %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("news: create snapshot %s: %w", path, err)
	}
	defer f.Close()

	if articles == nil {
		articles = []Article{}
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(articles); err != nil {
		return fmt.Errorf("news: encode snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot loads a list of articles previously written by WriteSnapshot
// (or any JSON list with the same field names).
func ReadSnapshot(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("news: read snapshot %s: %w", path, err)
	}
	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("news: parse snapshot %s: %w", path, err)
	}
	return articles, nil
}

// FirstLine returns the text before the first newline, trimmed.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
