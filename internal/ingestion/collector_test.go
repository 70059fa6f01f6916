package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/54b3r/newsrag-go/internal/news"
)

type fakeSource struct {
	hits map[string][]news.RawItem
	errs map[string]error
}

func (s *fakeSource) Search(_ context.Context, keyword string, _ int) ([]news.RawItem, error) {
	return s.hits[keyword], s.errs[keyword]
}

type fakeFetcher struct {
	bodies map[string]string
}

func (f *fakeFetcher) Content(_ context.Context, link string) (string, error) {
	if b, ok := f.bodies[link]; ok {
		return b, nil
	}
	return "", errors.New("404")
}

type fakeIndexer struct {
	mu       sync.Mutex
	articles []news.Article
	err      error
}

func (x *fakeIndexer) Upsert(_ context.Context, a []news.Article) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return x.err
	}
	x.articles = append(x.articles, a...)
	return nil
}

func hit(n int, title, original string) news.RawItem {
	return news.RawItem{
		Title:        title,
		PubDate:      "Tue, 06 May 2025 10:59:00 +0900",
		Link:         fmt.Sprintf("https://n.news.naver.com/mnews/article/001/%d", n),
		OriginalLink: original,
	}
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	src := &fakeSource{hits: map[string][]news.RawItem{
		"경제": {
			hit(1, "<b>금리</b> 동결", "https://www.yna.co.kr/view/1"),
			hit(2, "환율 급등", "https://unknown-blog.example/2"),
			hit(3, "증시 마감", "https://www.hankyung.com/3"),
		},
		"IT": {
			hit(4, "금리 동결", "https://www.chosun.com/4"), // duplicate title after cleaning
			hit(5, "AI 반도체", "https://www.etnews.com/5"),
			hit(6, "본문 없음", "https://www.etnews.com/6"),
		},
	}}
	fetcher := &fakeFetcher{bodies: map[string]string{
		hit(1, "", "").Link: "금리 본문",
		hit(2, "", "").Link: "환율 본문",
		hit(3, "", "").Link: "증시 본문",
		hit(4, "", "").Link: "중복 본문",
		hit(5, "", "").Link: "반도체 본문",
	}}
	idx := &fakeIndexer{}
	snapshot := filepath.Join(t.TempDir(), "data", "news_data.json")

	c, err := NewCollector(&CollectorConfig{
		Source:       src,
		Fetcher:      fetcher,
		Indexer:      idx,
		SnapshotPath: snapshot,
	})
	if err != nil {
		t.Fatal(err)
	}

	var msgs []string
	stats, err := c.Collect(context.Background(), []string{"경제", "IT"}, 100, func(m string) { msgs = append(msgs, m) })
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if stats.Fetched != 6 || stats.Scraped != 5 || stats.Stored != 3 {
		t.Errorf("stats = %+v, want fetched 6, scraped 5, stored 3", stats)
	}

	wantTitles := []string{"금리 동결", "증시 마감", "AI 반도체"}
	if len(idx.articles) != len(wantTitles) {
		t.Fatalf("indexed %d articles, want %d: %+v", len(idx.articles), len(wantTitles), idx.articles)
	}
	for i, want := range wantTitles {
		if idx.articles[i].Title != want {
			t.Errorf("article[%d].Title = %q, want %q", i, idx.articles[i].Title, want)
		}
	}
	if idx.articles[0].Journal != "연합뉴스" || idx.articles[0].Content != "금리 본문" {
		t.Errorf("first article = %+v", idx.articles[0])
	}

	saved, err := news.ReadSnapshot(snapshot)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(saved) != 3 {
		t.Errorf("snapshot has %d articles, want 3", len(saved))
	}
	if len(msgs) == 0 {
		t.Error("expected progress messages")
	}
}

func TestCollector_PartialKeywordFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		hits: map[string][]news.RawItem{
			"경제": {hit(1, "금리 동결", "https://www.yna.co.kr/1")},
		},
		errs: map[string]error{"경제": errors.New("page 2 failed"), "IT": errors.New("quota exceeded")},
	}
	idx := &fakeIndexer{}
	c, err := NewCollector(&CollectorConfig{
		Source:  src,
		Fetcher: &fakeFetcher{bodies: map[string]string{hit(1, "", "").Link: "본문"}},
		Indexer: idx,
	})
	if err != nil {
		t.Fatal(err)
	}

	stats, err := c.Collect(context.Background(), nil, 0, nil)
	if err != nil {
		t.Fatalf("partial results must not fail the run: %v", err)
	}
	if stats.Stored != 1 {
		t.Errorf("stored = %d, want 1", stats.Stored)
	}
}

func TestCollector_AllKeywordsFail(t *testing.T) {
	t.Parallel()

	src := &fakeSource{errs: map[string]error{"경제": errors.New("401"), "IT": errors.New("401")}}
	idx := &fakeIndexer{}
	c, err := NewCollector(&CollectorConfig{Source: src, Fetcher: &fakeFetcher{}, Indexer: idx})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Collect(context.Background(), nil, 10, nil); err == nil {
		t.Fatal("expected error when every keyword fails")
	}
	if len(idx.articles) != 0 {
		t.Error("nothing should be indexed")
	}
}

func TestCollector_IndexErrorPropagates(t *testing.T) {
	t.Parallel()

	src := &fakeSource{hits: map[string][]news.RawItem{"경제": {hit(1, "금리", "https://www.yna.co.kr/1")}}}
	c, err := NewCollector(&CollectorConfig{
		Source:  src,
		Fetcher: &fakeFetcher{bodies: map[string]string{hit(1, "", "").Link: "본문"}},
		Indexer: &fakeIndexer{err: errors.New("disk full")},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Collect(context.Background(), []string{"경제"}, 10, nil); err == nil {
		t.Fatal("expected index error")
	}
}

func TestNewCollector_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := NewCollector(&CollectorConfig{Fetcher: &fakeFetcher{}, Indexer: &fakeIndexer{}}); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewCollector(&CollectorConfig{Source: &fakeSource{}, Indexer: &fakeIndexer{}}); err == nil {
		t.Error("expected error for nil fetcher")
	}
	if _, err := NewCollector(&CollectorConfig{Source: &fakeSource{}, Fetcher: &fakeFetcher{}}); err == nil {
		t.Error("expected error for nil indexer")
	}
}
