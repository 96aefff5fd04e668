package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"contest-reward-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches a contest catalog from a backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, contestID string) (domain.Catalog, error)
}

// CatalogCache caches catalogs with TTL to avoid repeated store hits. It is
// the injectable replacement for the source's implicit module-level cache:
// explicit TTL, explicit Invalidate, no global state.
type CatalogCache struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedCatalog
}

type cachedCatalog struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogCache(loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCatalog),
	}
}

func (c *CatalogCache) GetCatalog(ctx context.Context, contestID string) (domain.Catalog, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[contestID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.catalog, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(contestID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[contestID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.catalog, nil
		}
		c.mu.RUnlock()

		catalog, err := c.loader.LoadCatalog(ctx, contestID)
		if err != nil {
			return domain.Catalog{}, err
		}

		c.mu.Lock()
		c.cache[contestID] = cachedCatalog{
			catalog:   catalog,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog so the next read sees fresh state
// (called after lifecycle transitions).
func (c *CatalogCache) Invalidate(_ context.Context, contestID string) error {
	c.mu.Lock()
	delete(c.cache, contestID)
	c.mu.Unlock()
	return nil
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
