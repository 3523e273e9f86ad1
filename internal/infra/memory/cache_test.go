package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

func newTestCache(size int, ttl time.Duration) (*ResultCache, *time.Time) {
	c := NewResultCache(size, ttl, zap.NewNop())
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func result(query string) *domain.SearchResult {
	return domain.NewSearchResult([]domain.Item{{ID: query + "-1", Name: query}}, 1, 1, domain.DefaultPerPage, query)
}

// TestResultCache_PutGet tests hits, misses and the reported age.
func TestResultCache_PutGet(t *testing.T) {
	c, clock := newTestCache(10, time.Hour)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	got, err := c.Get(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, params, result("桔梗")))
	*clock = clock.Add(90 * time.Second)

	got, err = c.Get(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Cached)
	assert.Equal(t, 90, got.CacheAgeSeconds)
	assert.Equal(t, "桔梗-1", got.Items[0].ID)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.ValidEntries)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, time.Hour, stats.TTL)
}

// TestResultCache_Capacity tests LRU eviction at capacity.
func TestResultCache_Capacity(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, domain.NewSearchParams(q), result(q)))
	}

	got, err := c.Get(ctx, domain.NewSearchParams("a"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, domain.NewSearchParams("c"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// TestResultCache_Expiry tests that expired entries are misses and get swept.
func TestResultCache_Expiry(t *testing.T) {
	c, _ := newTestCache(10, 50*time.Millisecond)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	require.NoError(t, c.Put(ctx, params, result("桔梗")))
	time.Sleep(100 * time.Millisecond)

	got, err := c.Get(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = c.Cleanup(ctx)
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Zero(t, stats.ValidEntries)
}

// TestResultCache_Invalidation tests single, per-query and full invalidation.
func TestResultCache_Invalidation(t *testing.T) {
	c, clock := newTestCache(10, time.Hour)
	ctx := context.Background()
	kikyo := domain.NewSearchParams("桔梗")
	moe := domain.NewSearchParams("萌")

	require.NoError(t, c.Put(ctx, kikyo, result("桔梗")))
	*clock = clock.Add(time.Second)
	require.NoError(t, c.Put(ctx, kikyo.WithPage(2), result("桔梗")))
	*clock = clock.Add(time.Second)
	require.NoError(t, c.Put(ctx, moe, result("萌")))

	recent, err := c.RecentQueries(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"萌", "桔梗"}, recent)

	removed, err := c.Invalidate(ctx, kikyo)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Invalidate(ctx, kikyo)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := c.InvalidateByQuery(ctx, "桔梗")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recent, err = c.RecentQueries(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"萌"}, recent)

	require.NoError(t, c.Clear(ctx))
	got, err := c.Get(ctx, moe)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, c.Ping(ctx))
}
