// Package memory provides in-process implementations of the result cache and
// the preference store.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// DefaultSize is the entry capacity used when none is configured.
const DefaultSize = 512

type entry struct {
	result    *domain.SearchResult
	query     string
	createdAt time.Time
}

// ResultCache implements domain.ResultCache with an expirable LRU.
type ResultCache struct {
	lru    *expirable.LRU[string, entry]
	keys   sync.Map // cache key -> struct{}, mirrors the LRU including expired-but-unswept entries
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a cache holding up to size results for ttl each.
func NewResultCache(size int, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if size < 1 {
		size = DefaultSize
	}

	c := &ResultCache{ttl: ttl, logger: logger, now: time.Now}
	c.lru = expirable.NewLRU[string, entry](size, func(key string, _ entry) {
		c.keys.Delete(key)
	}, ttl)

	return c
}

// Get returns the cached result, or nil if absent or expired.
func (c *ResultCache) Get(_ context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	key := params.CacheKey()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		c.logger.Debug("cache miss", zap.String("key", key), zap.String("avatar", params.AvatarName))
		return nil, nil
	}

	c.hits.Add(1)
	age := int(c.now().Sub(e.createdAt).Seconds())
	if age < 0 {
		age = 0
	}
	c.logger.Debug("cache hit", zap.String("key", key), zap.Int("age_seconds", age))

	return e.result.AsCached(age), nil
}

// Put stores result, replacing any previous entry.
func (c *ResultCache) Put(_ context.Context, params domain.SearchParams, result *domain.SearchResult) error {
	key := params.CacheKey()
	c.keys.Store(key, struct{}{})
	c.lru.Add(key, entry{result: result, query: params.AvatarName, createdAt: c.now()})
	return nil
}

// Invalidate removes the entry for params.
func (c *ResultCache) Invalidate(_ context.Context, params domain.SearchParams) (bool, error) {
	key := params.CacheKey()
	_, live := c.lru.Peek(key)
	c.lru.Remove(key)
	return live, nil
}

// InvalidateByQuery removes every live entry stored for query.
func (c *ResultCache) InvalidateByQuery(_ context.Context, query string) (int, error) {
	n := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && e.query == query && c.lru.Remove(key) {
			n++
		}
	}
	return n, nil
}

// Clear removes all entries. Hit/miss counters survive.
func (c *ResultCache) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}

// Cleanup sweeps entries whose TTL elapsed but that have not been evicted yet.
func (c *ResultCache) Cleanup(context.Context) (int, error) {
	n := 0
	c.keys.Range(func(k, _ any) bool {
		key := k.(string)
		if _, ok := c.lru.Peek(key); !ok && c.lru.Remove(key) {
			n++
		}
		return true
	})

	if n > 0 {
		c.logger.Info("cache cleanup", zap.Int("removed", n))
	}

	return n, nil
}

// RecentQueries returns distinct queries of live entries, most recently stored first.
func (c *ResultCache) RecentQueries(_ context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = domain.MaxRecentSearches
	}

	live := make([]entry, 0, c.lru.Len())
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok {
			live = append(live, e)
		}
	}
	sort.SliceStable(live, func(a, b int) bool {
		return live[a].createdAt.After(live[b].createdAt)
	})

	seen := make(map[string]bool, len(live))
	queries := []string{}
	for _, e := range live {
		if seen[e.query] {
			continue
		}
		seen[e.query] = true
		queries = append(queries, e.query)
		if len(queries) == limit {
			break
		}
	}

	return queries, nil
}

// Stats reports entry counts and hit/miss counters.
func (c *ResultCache) Stats(context.Context) (domain.CacheStats, error) {
	total := c.lru.Len()
	valid := len(c.lru.Keys())
	hits, misses := c.hits.Load(), c.misses.Load()

	return domain.CacheStats{
		Backend:        "memory",
		TotalEntries:   total,
		ValidEntries:   valid,
		ExpiredEntries: total - valid,
		Hits:           hits,
		Misses:         misses,
		HitRate:        domain.HitRatio(hits, misses),
		TTL:            c.ttl,
	}, nil
}

// Ping always succeeds.
func (c *ResultCache) Ping(context.Context) error { return nil }
