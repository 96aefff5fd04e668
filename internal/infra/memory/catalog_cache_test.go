package memory

import (
	"context"
	"testing"
	"time"

	"contest-reward-service/internal/domain"
)

func TestCatalogCacheCaches(t *testing.T) {
	loader := &countingLoader{store: seededStore()}
	cache := NewCatalogCache(loader, time.Minute)

	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCatalogCacheInvalidate(t *testing.T) {
	loader := &countingLoader{store: seededStore()}
	cache := NewCatalogCache(loader, time.Minute)

	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if err := cache.Invalidate(context.Background(), "c1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	store *Store
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context, contestID string) (domain.Catalog, error) {
	l.calls++
	return l.store.LoadCatalog(ctx, contestID)
}

func seededStore() *Store {
	store := NewStore()
	store.SeedCatalog(domain.Catalog{
		Contest: domain.Contest{ID: "c1", Title: "Cached", Status: domain.ContestActive},
		Questions: []domain.Question{
			{ID: "q1", ContestID: "c1", Text: "Pick a", Options: []string{"a", "b"}, CorrectAnswer: "a", Ordering: 1},
		},
	})
	return store
}
