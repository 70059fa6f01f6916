//go:build integration

package rag

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestQdrantStore_Integration exercises a live Qdrant instance in a
// throwaway collection.
//
// Prerequisites:
//
//	docker run -p 6334:6334 qdrant/qdrant
//
// Run with:
//
//	go test -tags=integration -run TestQdrantStore_Integration ./internal/rag/
func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil {
		port = p
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := "newsrag_test_" + uuid.NewString()[:8]
	store, err := NewQdrantStore(ctx, &QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: 2,
	})
	if err != nil {
		t.Fatalf("NewQdrantStore: %v (is Qdrant running?)", err)
	}
	t.Cleanup(func() {
		_ = store.client.DeleteCollection(context.Background(), collection)
		_ = store.Close()
	})

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	doc := func(id, title, journal string) Document {
		return Document{
			ID:   id,
			Text: title + "\n본문",
			Metadata: map[string]string{
				MetaJournal: journal,
				MetaLink:    "https://n.news.naver.com/" + title,
				MetaDate:    "2025-05-06 10:59",
			},
		}
	}
	idA := uuid.NewString()
	idB := uuid.NewString()

	err = store.Upsert(ctx,
		[]Document{doc(idA, "금리 동결", "연합뉴스"), doc(idB, "금리 인상", "KBS")},
		[][]float32{{1, 0}, {0.9, 0.1}},
	)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Search(ctx, []float32{1, 0}, 5, Filter{Journal: "KBS"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Journal() != "KBS" || got[0].Title() != "금리 인상" {
		t.Fatalf("journal filter returned %+v", got)
	}

	// Same ID again replaces the point.
	if err := store.Upsert(ctx, []Document{doc(idA, "금리 동결 수정", "연합뉴스")}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count after replace = %d, want 2", n)
	}

	got, err = store.Search(ctx, []float32{1, 0}, 1, Filter{Journal: "연합뉴스"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != idA || got[0].Title() != "금리 동결 수정" {
		t.Errorf("expected replaced point, got %+v", got)
	}
}
