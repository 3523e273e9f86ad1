package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

const testPrefix = "booth-test"

func setupTestCache(t *testing.T) (*ResultCache, *miniredis.Miniredis, *time.Time) {
	t.Helper()

	// Create an in-memory Redis instance for testing
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewResultCache(client, zap.NewNop(), testPrefix, time.Hour)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	return cache, mr, &clock
}

func testResult(query string, n int) *domain.SearchResult {
	price := 500
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:         query + string(rune('a'+i)),
			Name:       query + " ドレス",
			PriceText:  "¥ 500",
			PriceValue: &price,
			PriceType:  domain.PriceTypePaid,
			Tags:       []string{"3D衣装"},
		}
	}
	return domain.NewSearchResult(items, n, 1, domain.DefaultPerPage, query)
}

// TestResultCache_PutGet tests a round trip and the reported cache age.
func TestResultCache_PutGet(t *testing.T) {
	cache, _, clock := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")
	stored := testResult("桔梗", 2)

	require.NoError(t, cache.Put(ctx, params, stored))
	*clock = clock.Add(30 * time.Second)

	got, err := cache.Get(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, got.Cached)
	assert.Equal(t, 30, got.CacheAgeSeconds)
	assert.Equal(t, stored.Items, got.Items)
	assert.Equal(t, stored.TotalCount, got.TotalCount)
	assert.False(t, stored.Cached, "stored result must not be modified")
}

// TestResultCache_Miss tests that absent keys return nil and count as misses.
func TestResultCache_Miss(t *testing.T) {
	cache, _, _ := setupTestCache(t)
	ctx := context.Background()

	got, err := cache.Get(ctx, domain.NewSearchParams("nothing"))
	require.NoError(t, err)
	assert.Nil(t, got)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Zero(t, stats.Hits)
	assert.Equal(t, "redis", stats.Backend)
}

// TestResultCache_KeyIncludesParams tests that page and sort produce distinct entries.
func TestResultCache_KeyIncludesParams(t *testing.T) {
	cache, _, _ := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	require.NoError(t, cache.Put(ctx, params, testResult("桔梗", 1)))

	other := params.WithPage(2)
	got, err := cache.Get(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, got)

	sorted := params
	sorted.Sort = domain.SortNewest
	got, err = cache.Get(ctx, sorted)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestResultCache_Expiry tests TTL expiry and index cleanup.
func TestResultCache_Expiry(t *testing.T) {
	cache, mr, _ := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	require.NoError(t, cache.Put(ctx, params, testResult("桔梗", 1)))
	require.NoError(t, cache.Put(ctx, params.WithPage(2), testResult("桔梗", 1)))

	// Expire only the page 1 result; the query index still references it
	mr.Del(testPrefix + ":result:" + params.CacheKey())

	got, err := cache.Get(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err := cache.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	recent, err := cache.RecentQueries(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"桔梗"}, recent)

	mr.FastForward(2 * time.Hour)

	removed, err = cache.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "index expires with its entries")

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
}

// TestResultCache_Invalidate tests removal of a single entry.
func TestResultCache_Invalidate(t *testing.T) {
	cache, _, _ := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	require.NoError(t, cache.Put(ctx, params, testResult("桔梗", 1)))

	removed, err := cache.Invalidate(ctx, params)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cache.Invalidate(ctx, params)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := cache.Get(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestResultCache_InvalidateByQuery tests that every page of a query goes and others stay.
func TestResultCache_InvalidateByQuery(t *testing.T) {
	cache, _, _ := setupTestCache(t)
	ctx := context.Background()
	kikyo := domain.NewSearchParams("桔梗")
	moe := domain.NewSearchParams("萌")

	require.NoError(t, cache.Put(ctx, kikyo, testResult("桔梗", 1)))
	require.NoError(t, cache.Put(ctx, kikyo.WithPage(2), testResult("桔梗", 1)))
	require.NoError(t, cache.Put(ctx, moe, testResult("萌", 1)))

	n, err := cache.InvalidateByQuery(ctx, "桔梗")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = cache.InvalidateByQuery(ctx, "桔梗")
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := cache.Get(ctx, moe)
	require.NoError(t, err)
	assert.NotNil(t, got)

	recent, err := cache.RecentQueries(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"萌"}, recent)
}

// TestResultCache_Clear tests that Clear drops entries but keeps counters.
func TestResultCache_Clear(t *testing.T) {
	cache, mr, _ := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")

	require.NoError(t, cache.Put(ctx, params, testResult("桔梗", 1)))
	_, err := cache.Get(ctx, params)
	require.NoError(t, err)

	// Foreign keys must survive
	require.NoError(t, mr.Set("other-app:key", "v"))

	require.NoError(t, cache.Clear(ctx))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1.0, stats.HitRate)
	assert.True(t, mr.Exists("other-app:key"))

	recent, err := cache.RecentQueries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	// Clearing an empty cache is fine
	require.NoError(t, cache.Clear(ctx))
}

// TestResultCache_RecentQueries tests ordering and limits.
func TestResultCache_RecentQueries(t *testing.T) {
	cache, _, clock := setupTestCache(t)
	ctx := context.Background()

	for _, q := range []string{"桔梗", "萌", "マヌカ", "桔梗"} {
		require.NoError(t, cache.Put(ctx, domain.NewSearchParams(q), testResult(q, 1)))
		*clock = clock.Add(time.Second)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 10, []string{"桔梗", "マヌカ", "萌"}},
		{"limited", 2, []string{"桔梗", "マヌカ"}},
		{"default limit", 0, []string{"桔梗", "マヌカ", "萌"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cache.RecentQueries(ctx, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestResultCache_CorruptEntry tests that undecodable blobs are dropped as misses.
func TestResultCache_CorruptEntry(t *testing.T) {
	cache, mr, _ := setupTestCache(t)
	ctx := context.Background()
	params := domain.NewSearchParams("桔梗")
	key := testPrefix + ":result:" + params.CacheKey()

	require.NoError(t, mr.Set(key, "{not json"))

	got, err := cache.Get(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(key))
}

// TestResultCache_Unavailable tests that connection failures surface as errors.
func TestResultCache_Unavailable(t *testing.T) {
	cache, mr, _ := setupTestCache(t)
	ctx := context.Background()
	mr.Close()

	assert.Error(t, cache.Ping(ctx))

	_, err := cache.Get(ctx, domain.NewSearchParams("桔梗"))
	assert.Error(t, err)

	assert.Error(t, cache.Put(ctx, domain.NewSearchParams("桔梗"), testResult("桔梗", 1)))
}
