package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booth-outfit-search/internal/domain"
)

// ResultCache implements domain.ResultCache on the search_cache table.
type ResultCache struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a new PostgreSQL result cache.
func NewResultCache(db *gorm.DB, ttl time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the unexpired entry for params, or nil.
func (c *ResultCache) Get(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	key := params.CacheKey()

	var model CachedResultModel
	err := c.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, c.now()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.misses.Add(1)
		c.logger.Debug("cache miss", zap.String("key", key), zap.String("avatar", params.AvatarName))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached result: %w", err)
	}

	var result domain.SearchResult
	if err := json.Unmarshal([]byte(model.Result), &result); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		if err := c.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&CachedResultModel{}).Error; err != nil {
			c.logger.Warn("deleting undecodable cache entry failed", zap.String("key", key), zap.Error(err))
		}
		c.misses.Add(1)
		return nil, nil
	}

	c.hits.Add(1)
	age := int(c.now().Sub(model.CreatedAt).Seconds())
	if age < 0 {
		age = 0
	}
	c.logger.Debug("cache hit", zap.String("key", key), zap.Int("age_seconds", age))

	return result.AsCached(age), nil
}

// Put upserts result under the params' key.
func (c *ResultCache) Put(ctx context.Context, params domain.SearchParams, result *domain.SearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	now := c.now()
	model := &CachedResultModel{
		CacheKey:  params.CacheKey(),
		Query:     params.AvatarName,
		Result:    string(data),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"query", "result", "created_at", "expires_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("storing result: %w", err)
	}

	return nil
}

// Invalidate removes the entry for params.
func (c *ResultCache) Invalidate(ctx context.Context, params domain.SearchParams) (bool, error) {
	res := c.db.WithContext(ctx).
		Where("cache_key = ?", params.CacheKey()).
		Delete(&CachedResultModel{})
	if res.Error != nil {
		return false, fmt.Errorf("invalidating result: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// InvalidateByQuery removes every entry stored for query.
func (c *ResultCache) InvalidateByQuery(ctx context.Context, query string) (int, error) {
	res := c.db.WithContext(ctx).Where("query = ?", query).Delete(&CachedResultModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("invalidating query: %w", res.Error)
	}

	return int(res.RowsAffected), nil
}

// Clear removes all entries.
func (c *ResultCache) Clear(ctx context.Context) error {
	res := c.db.WithContext(ctx).Where("1 = 1").Delete(&CachedResultModel{})
	if res.Error != nil {
		return fmt.Errorf("clearing cache: %w", res.Error)
	}

	c.logger.Info("cache cleared", zap.Int64("rows", res.RowsAffected))

	return nil
}

// Cleanup deletes expired rows.
func (c *ResultCache) Cleanup(ctx context.Context) (int, error) {
	res := c.db.WithContext(ctx).Where("expires_at <= ?", c.now()).Delete(&CachedResultModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting expired results: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		c.logger.Info("cache cleanup", zap.Int64("removed", res.RowsAffected))
	}

	return int(res.RowsAffected), nil
}

// RecentQueries returns distinct queries of live entries, most recently stored first.
func (c *ResultCache) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = domain.MaxRecentSearches
	}

	var rows []struct {
		Query string
	}
	err := c.db.WithContext(ctx).
		Model(&CachedResultModel{}).
		Select("query, MAX(created_at) AS last_stored").
		Where("expires_at > ?", c.now()).
		Group("query").
		Order("last_stored DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reading recent queries: %w", err)
	}

	queries := make([]string, len(rows))
	for i, r := range rows {
		queries[i] = r.Query
	}

	return queries, nil
}

// Stats reports entry counts and hit/miss counters.
func (c *ResultCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	var total, valid int64

	if err := c.db.WithContext(ctx).Model(&CachedResultModel{}).Count(&total).Error; err != nil {
		return domain.CacheStats{}, fmt.Errorf("counting cache entries: %w", err)
	}
	err := c.db.WithContext(ctx).
		Model(&CachedResultModel{}).
		Where("expires_at > ?", c.now()).
		Count(&valid).Error
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("counting valid entries: %w", err)
	}

	hits, misses := c.hits.Load(), c.misses.Load()

	return domain.CacheStats{
		Backend:        "postgres",
		TotalEntries:   int(total),
		ValidEntries:   int(valid),
		ExpiredEntries: int(total - valid),
		Hits:           hits,
		Misses:         misses,
		HitRate:        domain.HitRatio(hits, misses),
		TTL:            c.ttl,
	}, nil
}

// Ping verifies the database is reachable.
func (c *ResultCache) Ping(ctx context.Context) error {
	return HealthCheck(ctx, c.db)
}
