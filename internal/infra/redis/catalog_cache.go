package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"contest-reward-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches a contest catalog from a backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, contestID string) (domain.Catalog, error)
}

// CatalogCache caches catalogs in Redis as JSON and falls back to a loader on
// cache miss. Stored as: SET contest:{contestID}:catalog {json} EX ttl.
// Invalidate deletes the key; lifecycle transitions call it so stale status
// never gates or grades an answer.
type CatalogCache struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) GetCatalog(ctx context.Context, contestID string) (domain.Catalog, error) {
	key := c.key(contestID)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var catalog domain.Catalog
		if err := json.Unmarshal([]byte(raw), &catalog); err == nil {
			return catalog, nil
		}
		// Corrupt entry: drop it and reload.
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(contestID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Result(); err == nil {
			var catalog domain.Catalog
			if err := json.Unmarshal([]byte(raw), &catalog); err == nil {
				return catalog, nil
			}
		}

		catalog, err := c.loader.LoadCatalog(ctx, contestID)
		if err != nil {
			return domain.Catalog{}, err
		}

		if data, err := json.Marshal(catalog); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context, contestID string) error {
	return c.client.Del(ctx, c.key(contestID)).Err()
}

func (c *CatalogCache) key(contestID string) string {
	return "contest:" + contestID + ":catalog"
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	jitter := c.rnd.Int63n(jitterMax + 1)
	c.mu.Unlock()
	return c.ttl + time.Duration(jitter)
}
