package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"contest-reward-service/internal/domain"
	"contest-reward-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{store: seededStore()}
	cache := NewCatalogCache(client, loader, time.Minute)

	catalog, err := cache.GetCatalog(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("contest:c1:catalog") {
		t.Fatalf("expected catalog key in redis")
	}
	if len(catalog.Questions) != 1 || catalog.Questions[0].CorrectAnswer != "a" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	// Second call should hit redis, loader not incremented.
	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestCatalogCacheInvalidateDropsKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{store: seededStore()}
	cache := NewCatalogCache(client, loader, time.Minute)

	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if err := cache.Invalidate(context.Background(), "c1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("contest:c1:catalog") {
		t.Fatalf("expected key dropped")
	}
	if _, err := cache.GetCatalog(context.Background(), "c1"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls)
	}
}

// Concurrent misses on different contests all reach the jittered SET path;
// the shared jitter source must hold up under the race detector.
func TestCatalogCacheConcurrentFill(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := memory.NewStore()
	for i := 0; i < 16; i++ {
		id := fmt.Sprintf("c%d", i)
		store.SeedCatalog(domain.Catalog{
			Contest:   domain.Contest{ID: id, Status: domain.ContestActive},
			Questions: []domain.Question{{ID: "q1", ContestID: id, CorrectAnswer: "a", Ordering: 1}},
		})
	}
	cache := NewCatalogCache(newClient(mr), store, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		contestID := fmt.Sprintf("c%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetCatalog(context.Background(), contestID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("get catalog: %v", err)
	}
}

type countingLoader struct {
	store *memory.Store
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context, contestID string) (domain.Catalog, error) {
	l.calls++
	return l.store.LoadCatalog(ctx, contestID)
}

func seededStore() *memory.Store {
	store := memory.NewStore()
	store.SeedCatalog(domain.Catalog{
		Contest: domain.Contest{ID: "c1", Title: "Cached", Status: domain.ContestActive},
		Questions: []domain.Question{
			{ID: "q1", ContestID: "c1", Text: "Pick a", Options: []string{"a", "b"}, CorrectAnswer: "a", Ordering: 1},
		},
	})
	return store
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
