package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/newsrag-go/internal/news"
)

// tableEmbedder returns a fixed vector per text prefix, in order of the
// first matching entry. Unknown texts embed to the zero vector.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{0, 0}
		for prefix, v := range e.vectors {
			if strings.HasPrefix(t, prefix) {
				out[i] = v
				break
			}
		}
	}
	return out, nil
}

func TestCosine_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero right", []float32{1, 1}, []float32{0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Cosine(tc.a, tc.b)
			if math.IsNaN(got) {
				t.Fatalf("Cosine returned NaN")
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosine_AlwaysInRange(t *testing.T) {
	t.Parallel()

	vecs := [][]float32{
		{1e-20, 1e-20}, {3e30, -3e30}, {0.1, 0.2}, {-5, 7}, {1, 1e-30},
	}
	for _, a := range vecs {
		for _, b := range vecs {
			s := Cosine(a, b)
			if math.IsNaN(s) || s < -1 || s > 1 {
				t.Errorf("Cosine(%v, %v) = %v out of [-1, 1]", a, b, s)
			}
		}
	}
}

func TestRankByKeyword_OrdersByScore(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{
		"경제":   {1, 0},
		"far":  {0, 1},
		"near": {1, 0.1},
		"mid":  {1, 1},
	}}
	eng, err := NewEngine(emb)
	if err != nil {
		t.Fatal(err)
	}

	corpus := []news.Article{
		{Title: "far", Content: "x"},
		{Title: "mid", Content: "x"},
		{Title: "near", Content: "x"},
	}

	got, err := eng.RankByKeyword(context.Background(), "경제", corpus, 2, "")
	if err != nil {
		t.Fatalf("RankByKeyword: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Title != "near" || got[1].Title != "mid" {
		t.Errorf("order = [%s %s], want [near mid]", got[0].Title, got[1].Title)
	}
}

func TestRankByKeyword_TiesKeepCorpusOrder(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{
		"q": {1, 0},
		"a": {1, 0},
		"b": {1, 0},
		"c": {1, 0},
	}}
	eng, _ := NewEngine(emb)

	corpus := []news.Article{{Title: "c"}, {Title: "a"}, {Title: "b"}}
	got, err := eng.RankByKeyword(context.Background(), "q", corpus, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"c", "a", "b"} {
		if got[i].Title != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Title, want)
		}
	}
}

func TestRankByKeyword_JournalFilterBeforeRanking(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{
		"q":    {1, 0},
		"best": {1, 0},
		"ok":   {1, 1},
	}}
	eng, _ := NewEngine(emb)

	corpus := []news.Article{
		{Title: "best", Journal: "조선일보"},
		{Title: "ok", Journal: "중앙일보"},
	}
	got, err := eng.RankByKeyword(context.Background(), "q", corpus, 5, "중앙일보")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Journal != "중앙일보" {
		t.Fatalf("expected only 중앙일보 article, got %+v", got)
	}
}

func TestRankByKeyword_EmptyFilteredCorpus(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{}
	eng, _ := NewEngine(emb)

	got, err := eng.RankByKeyword(context.Background(), "q", []news.Article{{Title: "a", Journal: "KBS"}}, 3, "YTN")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
	if emb.calls != 0 {
		t.Errorf("embedder should not be called for an empty corpus, got %d calls", emb.calls)
	}
}

func TestRankByKeyword_ZeroVectorScoresZero(t *testing.T) {
	t.Parallel()

	emb := &tableEmbedder{vectors: map[string][]float32{
		"q":   {1, 0},
		"neg": {-1, 0},
	}}
	eng, _ := NewEngine(emb)

	corpus := []news.Article{{Title: "neg"}, {Title: "zero"}}
	got, err := eng.Score(context.Background(), "q", corpus, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Article.Title != "zero" || got[0].Score != 0 {
		t.Errorf("expected zero vector first with score 0, got %+v", got[0])
	}
	if got[1].Score != -1 {
		t.Errorf("expected -1 for opposite vector, got %v", got[1].Score)
	}
}

func TestRankByKeyword_EmbedError(t *testing.T) {
	t.Parallel()

	eng, _ := NewEngine(&tableEmbedder{err: errors.New("model down")})
	_, err := eng.RankByKeyword(context.Background(), "q", []news.Article{{Title: "a"}}, 1, "")
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

// cappedEmbedder fails any call with more than limit texts, like a
// provider's per-request batch cap.
type cappedEmbedder struct {
	limit int
	sizes []int
}

func (e *cappedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.sizes = append(e.sizes, len(texts))
	if len(texts) > e.limit {
		return nil, fmt.Errorf("batch of %d exceeds provider limit %d", len(texts), e.limit)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.HasPrefix(t, "hit") || t == "q" {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestRankByKeyword_LargeCorpusIsBatched(t *testing.T) {
	t.Parallel()

	corpus := make([]news.Article, 500)
	for i := range corpus {
		corpus[i] = news.Article{Title: fmt.Sprintf("miss %d", i), Content: "본문"}
	}
	corpus[137].Title = "hit 137"
	corpus[420].Title = "hit 420"

	emb := &cappedEmbedder{limit: 100}
	eng, _ := NewEngine(emb)

	got, err := eng.RankByKeyword(context.Background(), "q", corpus, 4, "")
	if err != nil {
		t.Fatalf("RankByKeyword: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(got))
	}
	if got[0].Title != "hit 137" || got[1].Title != "hit 420" {
		t.Errorf("expected hits first in corpus order, got %q, %q", got[0].Title, got[1].Title)
	}

	total := 0
	for _, n := range emb.sizes {
		if n > defaultBatchSize {
			t.Errorf("embed call with %d texts exceeds batch size %d", n, defaultBatchSize)
		}
		total += n
	}
	if total != len(corpus)+1 {
		t.Errorf("embedded %d texts, want %d", total, len(corpus)+1)
	}
}

func TestNewEngine_NilEmbedder(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}

func TestLoadCorpus(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.json")
	want := []news.Article{{Title: "a", Journal: "KBS", Link: "https://kbs.co.kr/1"}}
	if err := news.WriteSnapshot(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCorpus(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("LoadCorpus = %+v", got)
	}

	if _, err := LoadCorpus(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing corpus")
	}
}
