package store

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MikeSquared-Agency/Concierge/internal/metrics"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = time.Minute
)

type cacheEntry struct {
	candidates []models.Candidate
	storedAt   time.Time
}

// Cache fronts a Repository with an LRU of recent fetch results keyed by
// filter. Entries older than the TTL are refetched. Errors are not cached.
type Cache struct {
	repo  Repository
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewCache(repo Repository, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[string, cacheEntry](size)
	return &Cache{repo: repo, cache: cache, ttl: ttl, now: time.Now}
}

func (c *Cache) FetchCandidates(ctx context.Context, filter Filter) ([]models.Candidate, error) {
	key := filter.Key()
	if entry, ok := c.cache.Get(key); ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			metrics.CacheHits.Inc()
			return models.CloneCandidates(entry.candidates), nil
		}
		c.cache.Remove(key)
	}
	metrics.CacheMisses.Inc()

	candidates, err := c.repo.FetchCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{candidates: models.CloneCandidates(candidates), storedAt: c.now()})
	return candidates, nil
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.cache.Purge()
}

func (c *Cache) Len() int {
	return c.cache.Len()
}
