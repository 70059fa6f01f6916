package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"testing"

	"github.com/54b3r/newsrag-go/internal/news"
)

// bagEmbedder is a deterministic Embedder: each whitespace-separated token
// increments one of dims buckets chosen by hash. Texts sharing words get
// similar vectors.
type bagEmbedder struct {
	dims int

	mu    sync.Mutex
	calls int
	err   error
}

func (e *bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, e.dims)
		for _, tok := range strings.Fields(t) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			v[h.Sum32()%uint32(e.dims)]++
		}
		out[i] = v
	}
	return out, nil
}

// newTestIndex opens a SQLite-backed index in a temp directory.
func newTestIndex(t *testing.T) (*Index, *bagEmbedder) {
	t.Helper()
	store, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := &bagEmbedder{dims: 64}
	idx, err := NewIndex(emb, store, &IndexConfig{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx, emb
}

func article(title, journal string) news.Article {
	return news.Article{
		Title:   title,
		Content: title + " 관련 본문",
		Date:    "2025-05-06 10:59",
		Journal: journal,
		Link:    "https://n.news.naver.com/mnews/article/001/" + title,
	}
}

func TestNewIndex_NilDeps(t *testing.T) {
	t.Parallel()

	store, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := NewIndex(nil, store, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewIndex(&bagEmbedder{dims: 4}, nil, nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestIndex_QueryEmptyIndex(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)

	got, err := idx.Query(context.Background(), "경제", 5, "")
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestIndex_UpsertThenQueryReturnsLink(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	ctx := context.Background()
	a := article("A", "연합뉴스")

	if err := idx.Upsert(ctx, []news.Article{a}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := idx.Query(ctx, "A", 5, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(got))
	}
	if got[0].Link() != a.Link {
		t.Errorf("link = %q, want %q", got[0].Link(), a.Link)
	}
	if got[0].Title() != "A" {
		t.Errorf("title = %q, want A", got[0].Title())
	}
	if got[0].Metadata[MetaDate] != a.Date || got[0].Journal() != a.Journal {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
	if got[0].Text != a.IndexText() {
		t.Errorf("text = %q, want %q", got[0].Text, a.IndexText())
	}
}

func TestIndex_FewerThanK(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Upsert(ctx, []news.Article{article("하나", "KBS"), article("둘", "KBS"), article("셋", "YTN")}); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Query(ctx, "하나", 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 results, got %d", len(got))
	}
}

func TestIndex_JournalFilterPrecision(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	ctx := context.Background()
	articles := []news.Article{
		article("금리 인상", "조선일보"),
		article("금리 동결", "중앙일보"),
		article("금리 전망", "조선일보"),
		article("환율 급등", "중앙일보"),
	}
	if err := idx.Upsert(ctx, articles); err != nil {
		t.Fatal(err)
	}

	for _, journal := range []string{"조선일보", "중앙일보", "없는신문"} {
		got, err := idx.Query(ctx, "금리", 10, journal)
		if err != nil {
			t.Fatalf("Query(%s): %v", journal, err)
		}
		for _, d := range got {
			if d.Journal() != journal {
				t.Errorf("filter %q returned document from %q", journal, d.Journal())
			}
		}
		if journal == "없는신문" && len(got) != 0 {
			t.Errorf("expected no results for unknown journal, got %d", len(got))
		}
		if journal == "조선일보" && len(got) != 2 {
			t.Errorf("expected 2 조선일보 results, got %d", len(got))
		}
	}
}

func TestIndex_RankingPrefersSharedWords(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Upsert(ctx, []news.Article{
		article("반도체 수출", "KBS"),
		article("부동산 시장", "KBS"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Query(ctx, "부동산 시장 관련 본문", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title() != "부동산 시장" {
		t.Errorf("expected 부동산 시장 first, got %+v", got)
	}
}

func TestIndex_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	idx, _ := newTestIndex(t)
	ctx := context.Background()
	batch := []news.Article{article("A", "KBS"), article("B", "KBS"), article("C", "KBS")}

	for range 2 {
		if err := idx.Upsert(ctx, batch); err != nil {
			t.Fatal(err)
		}
	}

	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 stored documents after repeated upsert, got %d", n)
	}
}

func TestIndex_UpsertBatchesEmbedCalls(t *testing.T) {
	t.Parallel()

	idx, emb := newTestIndex(t)
	batch := []news.Article{article("1", "KBS"), article("2", "KBS"), article("3", "KBS")}
	if err := idx.Upsert(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
	if emb.calls != 2 {
		t.Errorf("expected 2 embed calls with batch size 2, got %d", emb.calls)
	}
}

func TestIndex_EmbedErrorPropagates(t *testing.T) {
	t.Parallel()

	idx, emb := newTestIndex(t)
	emb.err = errors.New("embedding backend down")

	if err := idx.Upsert(context.Background(), []news.Article{article("A", "KBS")}); err == nil {
		t.Error("expected Upsert error")
	}
	if _, err := idx.Query(context.Background(), "A", 3, ""); err == nil {
		t.Error("expected Query error")
	}
}

func TestIndex_ZeroK(t *testing.T) {
	t.Parallel()

	idx, emb := newTestIndex(t)
	got, err := idx.Query(context.Background(), "x", 0, "")
	if err != nil || len(got) != 0 {
		t.Errorf("Query k=0 = %v, %v", got, err)
	}
	if emb.calls != 0 {
		t.Errorf("expected no embed call for k=0")
	}
}

// leakyStore ignores the filter to check that Index still narrows results.
type leakyStore struct {
	VectorStore
	docs []Document
}

func (s *leakyStore) Search(context.Context, []float32, int, Filter) ([]Document, error) {
	return s.docs, nil
}

func TestIndex_QueryNarrowsUnfilteredBackend(t *testing.T) {
	t.Parallel()

	store := &leakyStore{docs: []Document{
		{Text: "a", Metadata: map[string]string{MetaJournal: "KBS"}},
		{Text: "b", Metadata: map[string]string{MetaJournal: "YTN"}},
	}}
	idx, err := NewIndex(&bagEmbedder{dims: 4}, store, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := idx.Query(context.Background(), "q", 5, "YTN")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Journal() != "YTN" {
		t.Errorf("expected only YTN document, got %+v", got)
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	t.Parallel()

	a := article("A", "KBS")
	b := a
	b.Content = "changed body"
	if DocumentID(a) != DocumentID(b) {
		t.Error("ID must depend only on link and title")
	}
	c := a
	c.Title = "A2"
	if DocumentID(a) == DocumentID(c) {
		t.Error("different titles must yield different IDs")
	}
}
