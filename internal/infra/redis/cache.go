// Package redis implements domain.ResultCache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// maxRecentQueries bounds the recent-query sorted set.
const maxRecentQueries = 100

// ResultCache implements domain.ResultCache using Redis.
//
// Layout under keyPrefix:
//
//	<prefix>:result:<cache key>  JSON envelope, expires after ttl
//	<prefix>:query:<avatar>      set of cache keys stored for that query
//	<prefix>:recent              sorted set of queries scored by store time
//	<prefix>:stats               hash of hit/miss counters
type ResultCache struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

type envelope struct {
	CreatedAt time.Time            `json:"created_at"`
	Query     string               `json:"query"`
	Result    *domain.SearchResult `json:"result"`
}

// NewResultCache creates a new Redis result cache.
// keyPrefix is used to namespace all keys and prevent collisions with other applications.
func NewResultCache(client *redis.Client, logger *zap.Logger, keyPrefix string, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Get retrieves a cached result. Returns nil if the key doesn't exist.
func (c *ResultCache) Get(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	key := params.CacheKey()

	data, err := c.client.Get(ctx, c.resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(ctx, "misses")
		c.logger.Debug("cache miss", zap.String("key", key), zap.String("avatar", params.AvatarName))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached result: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Result == nil {
		c.logger.Warn("dropping undecodable cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
		_ = c.client.Del(ctx, c.resultKey(key)).Err()
		c.count(ctx, "misses")
		return nil, nil
	}

	c.count(ctx, "hits")
	age := int(c.now().Sub(env.CreatedAt).Seconds())
	if age < 0 {
		age = 0
	}

	c.logger.Debug("cache hit",
		zap.String("key", key),
		zap.String("avatar", params.AvatarName),
		zap.Int("age_seconds", age),
	)

	return env.Result.AsCached(age), nil
}

// Put stores result with the configured TTL and indexes it by query.
func (c *ResultCache) Put(ctx context.Context, params domain.SearchParams, result *domain.SearchResult) error {
	key := params.CacheKey()
	now := c.now()

	data, err := json.Marshal(envelope{CreatedAt: now, Query: params.AvatarName, Result: result})
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	queryKey := c.queryKey(params.AvatarName)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.resultKey(key), data, c.ttl)
		pipe.SAdd(ctx, queryKey, key)
		pipe.Expire(ctx, queryKey, c.ttl)
		pipe.ZAdd(ctx, c.recentKey(), redis.Z{Score: float64(now.UnixNano()), Member: params.AvatarName})
		pipe.ZRemRangeByRank(ctx, c.recentKey(), 0, -maxRecentQueries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing result: %w", err)
	}

	c.logger.Debug("cache set",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("ttl", c.ttl),
	)

	return nil
}

// Invalidate removes the entry for params.
func (c *ResultCache) Invalidate(ctx context.Context, params domain.SearchParams) (bool, error) {
	key := params.CacheKey()

	var del *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, c.resultKey(key))
		pipe.SRem(ctx, c.queryKey(params.AvatarName), key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("invalidating result: %w", err)
	}

	return del.Val() > 0, nil
}

// InvalidateByQuery removes every entry stored for query.
func (c *ResultCache) InvalidateByQuery(ctx context.Context, query string) (int, error) {
	queryKey := c.queryKey(query)

	keys, err := c.client.SMembers(ctx, queryKey).Result()
	if err != nil {
		return 0, fmt.Errorf("listing entries for query: %w", err)
	}

	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.resultKey(k))
	}

	var del *redis.IntCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(full) > 0 {
			del = pipe.Del(ctx, full...)
		}
		pipe.Del(ctx, queryKey)
		pipe.ZRem(ctx, c.recentKey(), query)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalidating query: %w", err)
	}
	if del == nil {
		return 0, nil
	}

	c.logger.Info("cache invalidated by query",
		zap.String("query", query),
		zap.Int64("removed", del.Val()),
	)

	return int(del.Val()), nil
}

// Clear removes all cached values matching the keyPrefix. Hit/miss counters survive.
// Uses SCAN to find keys, which is safe for production use (non-blocking).
func (c *ResultCache) Clear(ctx context.Context) error {
	keys, err := c.scan(ctx, c.keyPrefix+":*")
	if err != nil {
		return err
	}

	doomed := keys[:0]
	for _, k := range keys {
		if k != c.statsKey() {
			doomed = append(doomed, k)
		}
	}

	if len(doomed) == 0 {
		c.logger.Debug("cache clear: no keys found", zap.String("prefix", c.keyPrefix))
		return nil
	}

	if err := c.client.Del(ctx, doomed...).Err(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	c.logger.Info("cache cleared", zap.Int("key_count", len(doomed)))

	return nil
}

// Cleanup prunes query index references whose result already expired.
// Redis expires the results themselves, so the count is of stale references.
func (c *ResultCache) Cleanup(ctx context.Context) (int, error) {
	indexKeys, err := c.scan(ctx, c.keyPrefix+":query:*")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, indexKey := range indexKeys {
		members, err := c.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return removed, fmt.Errorf("reading query index: %w", err)
		}

		for _, member := range members {
			n, err := c.client.Exists(ctx, c.resultKey(member)).Result()
			if err != nil {
				return removed, fmt.Errorf("checking cached result: %w", err)
			}
			if n > 0 {
				continue
			}
			if err := c.client.SRem(ctx, indexKey, member).Err(); err != nil {
				return removed, fmt.Errorf("pruning query index: %w", err)
			}
			removed++
		}

		left, err := c.client.SCard(ctx, indexKey).Result()
		if err != nil {
			return removed, fmt.Errorf("sizing query index: %w", err)
		}
		if left == 0 {
			query := indexKey[len(c.queryKey("")):]
			_ = c.client.ZRem(ctx, c.recentKey(), query).Err()
		}
	}

	if removed > 0 {
		c.logger.Info("cache cleanup", zap.Int("removed", removed))
	}

	return removed, nil
}

// RecentQueries returns the most recently stored queries.
func (c *ResultCache) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = domain.MaxRecentSearches
	}

	queries, err := c.client.ZRevRange(ctx, c.recentKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading recent queries: %w", err)
	}

	return queries, nil
}

// Stats reports entry counts and hit/miss counters.
func (c *ResultCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	keys, err := c.scan(ctx, c.keyPrefix+":result:*")
	if err != nil {
		return domain.CacheStats{}, err
	}

	counters, err := c.client.HMGet(ctx, c.statsKey(), "hits", "misses").Result()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("reading cache counters: %w", err)
	}
	hits, misses := toInt64(counters[0]), toInt64(counters[1])

	return domain.CacheStats{
		Backend:      "redis",
		TotalEntries: len(keys),
		ValidEntries: len(keys),
		Hits:         hits,
		Misses:       misses,
		HitRate:      domain.HitRatio(hits, misses),
		TTL:          c.ttl,
	}, nil
}

// Ping verifies Redis is reachable.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ResultCache) scan(ctx context.Context, pattern string) ([]string, error) {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		c.logger.Error("cache scan failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)

		return nil, fmt.Errorf("scanning %s: %w", pattern, err)
	}

	return keys, nil
}

func (c *ResultCache) count(ctx context.Context, field string) {
	if err := c.client.HIncrBy(ctx, c.statsKey(), field, 1).Err(); err != nil {
		c.logger.Warn("cache counter update failed", zap.String("field", field), zap.Error(err))
	}
}

func toInt64(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (c *ResultCache) resultKey(key string) string { return c.keyPrefix + ":result:" + key }

func (c *ResultCache) queryKey(query string) string { return c.keyPrefix + ":query:" + query }

func (c *ResultCache) recentKey() string { return c.keyPrefix + ":recent" }

func (c *ResultCache) statsKey() string { return c.keyPrefix + ":stats" }
