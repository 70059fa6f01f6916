package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/54b3r/newsrag-go/internal/ingestion"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/rag"
	"github.com/54b3r/newsrag-go/internal/similarity"
	"github.com/54b3r/newsrag-go/internal/summarizer"
)

// fakeIndex serves canned documents per query text.
type fakeIndex struct {
	docs   map[string][]rag.Document
	errs   map[string]error
	panics map[string]bool
	delay  time.Duration

	active    atomic.Int32
	maxActive atomic.Int32

	mu       sync.Mutex
	journals []string
}

func (x *fakeIndex) Query(_ context.Context, text string, k int, journal string) ([]rag.Document, error) {
	n := x.active.Add(1)
	defer x.active.Add(-1)
	for {
		m := x.maxActive.Load()
		if n <= m || x.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if x.delay > 0 {
		time.Sleep(x.delay)
	}

	x.mu.Lock()
	x.journals = append(x.journals, journal)
	x.mu.Unlock()

	if x.panics[text] {
		panic("index exploded")
	}
	if err := x.errs[text]; err != nil {
		return nil, err
	}
	docs := x.docs[text]
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

// fakeSummarizer returns deterministic summaries and counts calls.
type fakeSummarizer struct {
	textCalls   atomic.Int32
	urlCalls    atomic.Int32
	answerCalls atomic.Int32

	mu   sync.Mutex
	refs []news.SummaryItem
}

func (s *fakeSummarizer) SummarizeText(_ context.Context, text string) string {
	s.textCalls.Add(1)
	return "요약:" + news.FirstLine(text)
}

func (s *fakeSummarizer) SummarizeFromURL(_ context.Context, url string) string {
	s.urlCalls.Add(1)
	return "페이지:" + url
}

func (s *fakeSummarizer) AnswerExpertQuery(_ context.Context, q string, refs []news.SummaryItem) string {
	s.answerCalls.Add(1)
	s.mu.Lock()
	s.refs = refs
	s.mu.Unlock()
	return fmt.Sprintf("답변(%s, %d건)", q, len(refs))
}

func doc(title, journal string) rag.Document {
	return rag.Document{
		Text: title + "\n" + title + " 본문",
		Metadata: map[string]string{
			rag.MetaJournal: journal,
			rag.MetaLink:    "https://n.news.naver.com/" + title,
			rag.MetaDate:    "2025-05-06 10:59",
		},
	}
}

func newService(t *testing.T, idx Retriever, sum Summarizer) *Service {
	t.Helper()
	s, err := New(&Config{Index: idx, Summarizer: sum})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()
	if _, err := New(&Config{Summarizer: &fakeSummarizer{}}); err == nil {
		t.Error("expected error for nil index")
	}
	if _, err := New(&Config{Index: &fakeIndex{}}); err == nil {
		t.Error("expected error for nil summarizer")
	}
}

func TestBatchKeywordSummary_OrderAndFaultIsolation(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{
		docs: map[string][]rag.Document{
			"경제": {doc("금리", "KBS"), doc("환율", "YTN"), doc("증시", "KBS"), doc("물가", "KBS"), doc("고용", "KBS")},
			"IT": {doc("AI", "KBS"), {Text: "   \n  ", Metadata: map[string]string{}}},
		},
		errs:   map[string]error{"오류": errors.New("index unavailable")},
		panics: map[string]bool{"패닉": true},
	}
	sum := &fakeSummarizer{}
	s := newService(t, idx, sum)

	keywords := []string{"경제", "오류", "IT", "패닉", "없음"}
	got := s.BatchKeywordSummary(context.Background(), keywords)

	if len(got) != len(keywords) {
		t.Fatalf("expected %d results, got %d", len(keywords), len(got))
	}
	for i, kw := range keywords {
		if got[i].Keyword != kw {
			t.Errorf("result[%d].Keyword = %q, want %q", i, got[i].Keyword, kw)
		}
	}

	if got[0].Failed() || len(got[0].Articles) != KeywordTopK {
		t.Errorf("경제: %+v", got[0])
	}
	if got[0].Articles[0].Title != "금리" || got[0].Articles[0].URL != "https://n.news.naver.com/금리" {
		t.Errorf("first article = %+v", got[0].Articles[0])
	}
	if got[0].Articles[0].Summary != "요약:금리" {
		t.Errorf("summary = %q", got[0].Articles[0].Summary)
	}

	if !got[1].Failed() || got[1].Error != KeywordFailed {
		t.Errorf("오류: expected error result, got %+v", got[1])
	}
	if got[2].Failed() || len(got[2].Articles) != 1 {
		t.Errorf("IT: blank document should be skipped, got %+v", got[2])
	}
	if !got[3].Failed() {
		t.Errorf("패닉: expected error result, got %+v", got[3])
	}
	if got[4].Failed() || len(got[4].Articles) != 0 {
		t.Errorf("없음: expected empty success, got %+v", got[4])
	}
}

func TestBatchKeywordSummary_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{delay: 20 * time.Millisecond}
	s := newService(t, idx, &fakeSummarizer{})

	keywords := make([]string, 12)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("kw%d", i)
	}
	got := s.BatchKeywordSummary(context.Background(), keywords)

	if len(got) != 12 {
		t.Fatalf("expected 12 results, got %d", len(got))
	}
	if m := idx.maxActive.Load(); m > DefaultWorker {
		t.Errorf("observed %d concurrent pipelines, limit is %d", m, DefaultWorker)
	}
}

func TestBatchKeywordSummary_Empty(t *testing.T) {
	t.Parallel()
	s := newService(t, &fakeIndex{}, &fakeSummarizer{})
	if got := s.BatchKeywordSummary(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}

func TestKeywordResult_JSONShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   KeywordResult
		want string
	}{
		{
			name: "success",
			in:   KeywordResult{Keyword: "경제", Articles: []news.SummaryItem{{Title: "t", URL: "u", Summary: "s"}}},
			want: `{"keyword":"경제","articles":[{"title":"t","url":"u","summary":"s"}]}`,
		},
		{
			name: "empty success",
			in:   KeywordResult{Keyword: "IT"},
			want: `{"keyword":"IT","articles":[]}`,
		},
		{
			name: "failure",
			in:   KeywordResult{Keyword: "x", Error: KeywordFailed},
			want: `{"keyword":"x","error":"요약 실패"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestExpertReply(t *testing.T) {
	t.Parallel()

	t.Run("no related news skips model", func(t *testing.T) {
		t.Parallel()
		sum := &fakeSummarizer{}
		s := newService(t, &fakeIndex{}, sum)

		answer, refs, err := s.ExpertReply(context.Background(), "금리 전망", "")
		if err != nil {
			t.Fatal(err)
		}
		if answer != summarizer.SentinelNoRelatedNews {
			t.Errorf("answer = %q", answer)
		}
		if refs == nil || len(refs) != 0 {
			t.Errorf("refs = %#v, want empty non-nil", refs)
		}
		if sum.answerCalls.Load() != 0 {
			t.Error("model must not be called without references")
		}
	})

	t.Run("answers from top three with journal filter", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{docs: map[string][]rag.Document{
			"금리 전망": {doc("a", "중앙일보"), doc("b", "중앙일보"), doc("c", "중앙일보"), doc("d", "중앙일보")},
		}}
		sum := &fakeSummarizer{}
		s := newService(t, idx, sum)

		answer, refs, err := s.ExpertReply(context.Background(), "금리 전망", "중앙일보")
		if err != nil {
			t.Fatal(err)
		}
		if answer != "답변(금리 전망, 3건)" {
			t.Errorf("answer = %q", answer)
		}
		if len(refs) != ExpertTopK {
			t.Errorf("refs = %d, want %d", len(refs), ExpertTopK)
		}
		if idx.journals[0] != "중앙일보" {
			t.Errorf("journal filter not passed, got %q", idx.journals[0])
		}
		if len(sum.refs) != 3 || sum.refs[2].Title != "c" {
			t.Errorf("model saw refs %+v", sum.refs)
		}
	})

	t.Run("index failure is returned", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{errs: map[string]error{"q": errors.New("closed")}}
		s := newService(t, idx, &fakeSummarizer{})
		if _, _, err := s.ExpertReply(context.Background(), "q", ""); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSearch(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{docs: map[string][]rag.Document{
		"반도체": {doc("1", "KBS"), doc("2", "KBS"), doc("3", "KBS"), doc("4", "KBS"), doc("5", "KBS"), doc("6", "KBS")},
	}}
	sum := &fakeSummarizer{}
	s := newService(t, idx, sum)

	got, err := s.Search(context.Background(), "반도체")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != SearchTopK {
		t.Fatalf("expected %d results, got %d", SearchTopK, len(got))
	}
	for i, item := range got {
		want := fmt.Sprint(i + 1)
		if item.Title != want || item.Summary != "페이지:https://n.news.naver.com/"+want {
			t.Errorf("result[%d] = %+v", i, item)
		}
	}
	if sum.urlCalls.Load() != SearchTopK {
		t.Errorf("url summaries = %d", sum.urlCalls.Load())
	}

	idx.errs = map[string]error{"x": errors.New("down")}
	if _, err := s.Search(context.Background(), "x"); err == nil {
		t.Error("expected index error")
	}
}

// keywordEmbedder scores a text 1 on the axis of the first keyword it
// contains.
type keywordEmbedder struct{ axes []string }

func (e keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(e.axes))
		for j, a := range e.axes {
			if strings.Contains(t, a) {
				v[j] = 1
				break
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestStaticKeywordSummary(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "news_data_500.json")
	corpus := []news.Article{
		{Title: "야구 개막", Content: "야구 시즌", Link: "https://a/1", Journal: "KBS"},
		{Title: "금리 동결", Content: "금리 결정", Link: "https://a/2", Journal: "KBS"},
		{Title: "금리 빈본문", Content: "  ", Link: "https://a/3", Journal: "KBS"},
		{Title: "금리 인상", Content: "금리 결정", Link: "https://a/4", Journal: "YTN"},
	}
	if err := news.WriteSnapshot(path, corpus); err != nil {
		t.Fatal(err)
	}

	engine, err := similarity.NewEngine(keywordEmbedder{axes: []string{"금리", "야구"}})
	if err != nil {
		t.Fatal(err)
	}
	sum := &fakeSummarizer{}
	s, err := New(&Config{Index: &fakeIndex{}, Summarizer: sum, Ranker: engine, CorpusPath: path})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.StaticKeywordSummary(context.Background(), "금리", 3, "KBS")
	if err != nil {
		t.Fatal(err)
	}
	// Top 3 in KBS: 금리 동결, 금리 빈본문 (skipped, blank), 야구 개막.
	if len(got) != 2 || got[0].Title != "금리 동결" || got[0].URL != "https://a/2" {
		t.Errorf("got %+v", got)
	}
	if got[0].Summary != "요약:금리 결정" {
		t.Errorf("summary = %q", got[0].Summary)
	}

	unconfigured := newService(t, &fakeIndex{}, sum)
	if _, err := unconfigured.StaticKeywordSummary(context.Background(), "금리", 3, ""); !errors.Is(err, ErrStaticUnavailable) {
		t.Errorf("expected ErrStaticUnavailable, got %v", err)
	}
}

type fakeCollector struct{ keywords []string }

func (c *fakeCollector) Collect(_ context.Context, keywords []string, total int, _ func(string)) (ingestion.Stats, error) {
	c.keywords = keywords
	return ingestion.Stats{Fetched: total, Stored: total / 2}, nil
}

func TestCollect(t *testing.T) {
	t.Parallel()

	col := &fakeCollector{}
	s, err := New(&Config{Index: &fakeIndex{}, Summarizer: &fakeSummarizer{}, Collector: col})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := s.Collect(context.Background(), []string{"경제"}, 100, nil)
	if err != nil || stats.Stored != 50 || col.keywords[0] != "경제" {
		t.Errorf("Collect = %+v, %v", stats, err)
	}

	bare := newService(t, &fakeIndex{}, &fakeSummarizer{})
	if _, err := bare.Collect(context.Background(), nil, 0, nil); !errors.Is(err, ErrCollectUnavailable) {
		t.Errorf("expected ErrCollectUnavailable, got %v", err)
	}
}
