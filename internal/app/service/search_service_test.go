package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booth-outfit-search/internal/alias"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/textnorm"
)

func newTestService(market *fakeMarket, cache domain.ResultCache, prefs domain.PreferenceStore, entries ...alias.Entry) *SearchService {
	deps := Deps{
		Fetcher:     market,
		Parser:      market,
		Extractor:   plainExtractor{},
		Cache:       cache,
		Preferences: prefs,
	}
	if len(entries) > 0 {
		deps.Aliases = alias.NewResolver(entries, textnorm.Normalize)
	}
	return NewSearchService(deps, DefaultOptions(), zap.NewNop())
}

func intPtr(v int) *int { return &v }

// TestSearch_FetchParseRank tests a live search with relevance ranking.
func TestSearch_FetchParseRank(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, []domain.Item{
		{ID: "1", Name: "Hat"},
		{ID: "2", Name: "桔梗 対応 ドレス"},
	}, 30)
	svc := newTestService(market, nil, nil)

	result, err := svc.Search(context.Background(), domain.NewSearchParams("桔梗"), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"桔梗"}, market.calls)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "2", result.Items[0].ID)
	assert.Equal(t, domain.LabelStrong, result.Items[0].RelevanceLabel)
	assert.Equal(t, 30, result.TotalCount)
	assert.Equal(t, 2, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.False(t, result.Cached)
}

// TestSearch_NonRelevanceSortSkipsScoring tests that marketplace order is kept for other sorts.
func TestSearch_NonRelevanceSortSkipsScoring(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, []domain.Item{
		{ID: "1", Name: "Hat"},
		{ID: "2", Name: "桔梗 対応 ドレス"},
	}, 2)
	svc := newTestService(market, nil, nil)

	params := domain.NewSearchParams("桔梗")
	params.Sort = domain.SortNewest
	result, err := svc.Search(context.Background(), params, false)

	require.NoError(t, err)
	assert.Equal(t, "1", result.Items[0].ID)
	assert.Empty(t, result.Items[1].RelevanceLabel)
}

// TestSearch_ClickHistoryBoost tests that recent clicks feed the scorer.
func TestSearch_ClickHistoryBoost(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, []domain.Item{
		{ID: "1", Name: "桔梗 ワンピース", ShopName: "Other"},
		{ID: "2", Name: "桔梗 パーカー", ShopName: "Atelier"},
	}, 2)
	prefs := &fakePrefs{shops: []string{"atelier"}}
	svc := newTestService(market, nil, prefs)

	result, err := svc.Search(context.Background(), domain.NewSearchParams("桔梗"), false)

	require.NoError(t, err)
	assert.Equal(t, "2", result.Items[0].ID)
	assert.Equal(t, result.Items[1].RelevanceScore+4, result.Items[0].RelevanceScore)
}

// TestSearch_CacheHitBypassesFetch tests that a cached page is served as is.
func TestSearch_CacheHitBypassesFetch(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, itemsFor("桔梗", 3), 3)
	cache := newFakeCache()
	svc := newTestService(market, cache, nil)
	params := domain.NewSearchParams("桔梗")

	first, err := svc.Search(context.Background(), params, true)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), params, true)
	require.NoError(t, err)

	assert.Len(t, market.calls, 1)
	assert.Equal(t, 1, cache.puts)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 5, second.CacheAgeSeconds)
	assert.Equal(t, first.Items, second.Items)
}

// TestSearch_CacheBypassed tests that useCache=false neither reads nor writes.
func TestSearch_CacheBypassed(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, itemsFor("桔梗", 3), 3)
	cache := newFakeCache()
	svc := newTestService(market, cache, nil)

	_, err := svc.Search(context.Background(), domain.NewSearchParams("桔梗"), false)
	require.NoError(t, err)

	assert.Zero(t, cache.puts)
	assert.Zero(t, cache.misses)
}

// TestSearch_EmptyResultNotCached tests that empty pages are never stored.
func TestSearch_EmptyResultNotCached(t *testing.T) {
	market := newFakeMarket()
	cache := newFakeCache()
	svc := newTestService(market, cache, nil)

	result, err := svc.Search(context.Background(), domain.NewSearchParams("nothing"), true)

	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.NotNil(t, result.Items)
	assert.Zero(t, cache.puts)
}

// TestSearch_CacheErrorsAbsorbed tests that cache failures degrade to a live fetch.
func TestSearch_CacheErrorsAbsorbed(t *testing.T) {
	market := newFakeMarket()
	market.addPage("桔梗", 1, itemsFor("桔梗", 2), 2)
	cache := newFakeCache()
	cache.getErr = errBoom
	cache.putErr = errBoom
	svc := newTestService(market, cache, nil)

	result, err := svc.Search(context.Background(), domain.NewSearchParams("桔梗"), true)

	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, cache.puts)
}

// TestSearch_FetchErrorPropagates tests that provider errors are returned typed.
func TestSearch_FetchErrorPropagates(t *testing.T) {
	market := newFakeMarket()
	market.err = &domain.FetchError{Kind: domain.FetchErrorRateLimited, StatusCode: 429}
	svc := newTestService(market, nil, nil)

	_, err := svc.Search(context.Background(), domain.NewSearchParams("桔梗"), true)

	require.Error(t, err)
	fe, ok := domain.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, domain.FetchErrorRateLimited, fe.Kind)
}

// TestSearch_ClientFilters tests price filters and price sorting on both hit and miss.
func TestSearch_ClientFilters(t *testing.T) {
	items := []domain.Item{
		{ID: "free", Name: "a", PriceValue: intPtr(0), PriceType: domain.PriceTypeFree},
		{ID: "cheap", Name: "b", PriceValue: intPtr(500), PriceType: domain.PriceTypePaid},
		{ID: "pricey", Name: "c", PriceValue: intPtr(3000), PriceType: domain.PriceTypePaid},
		{ID: "unknown", Name: "d", PriceType: domain.PriceTypeUnknown},
	}

	tests := []struct {
		name   string
		adjust func(p *domain.SearchParams)
		want   []string
	}{
		{
			name:   "free only",
			adjust: func(p *domain.SearchParams) { p.PriceRange = &domain.PriceRange{FreeOnly: true} },
			want:   []string{"free"},
		},
		{
			name: "free only wins over price bounds",
			adjust: func(p *domain.SearchParams) {
				p.PriceRange = &domain.PriceRange{FreeOnly: true, MinPrice: intPtr(100)}
			},
			want: []string{"free"},
		},
		{
			name: "price window keeps unknown",
			adjust: func(p *domain.SearchParams) {
				p.PriceRange = &domain.PriceRange{MinPrice: intPtr(100), MaxPrice: intPtr(1000)}
			},
			want: []string{"cheap", "unknown"},
		},
		{
			name:   "price ascending",
			adjust: func(p *domain.SearchParams) { p.Sort = domain.SortPriceAsc },
			want:   []string{"free", "cheap", "pricey", "unknown"},
		},
		{
			name:   "price descending",
			adjust: func(p *domain.SearchParams) { p.Sort = domain.SortPriceDesc },
			want:   []string{"pricey", "cheap", "free", "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := newFakeMarket()
			market.addPage("x", 1, items, 4)
			cache := newFakeCache()
			svc := newTestService(market, cache, nil)

			params := domain.NewSearchParams("x")
			tt.adjust(&params)

			miss, err := svc.Search(context.Background(), params, true)
			require.NoError(t, err)
			hit, err := svc.Search(context.Background(), params, true)
			require.NoError(t, err)

			assert.Equal(t, tt.want, itemIDs(miss))
			assert.Equal(t, tt.want, itemIDs(hit))
			assert.True(t, hit.Cached)
			assert.Len(t, cache.entries[params.CacheKey()].Items, 4)
		})
	}
}

// TestCacheAdmin tests invalidation, clearing and stats.
func TestCacheAdmin(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	market.addPage("桔梗", 1, itemsFor("桔梗", 2), 2)
	market.addPage("桔梗", 2, itemsFor("桔梗2", 2), 2)
	cache := newFakeCache()
	svc := newTestService(market, cache, nil)

	p1 := domain.NewSearchParams("桔梗")
	_, err := svc.Search(ctx, p1, true)
	require.NoError(t, err)
	_, err = svc.Search(ctx, p1.WithPage(2), true)
	require.NoError(t, err)

	removed, err := svc.InvalidateCache(ctx, p1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.InvalidateCache(ctx, p1)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := svc.InvalidateByQuery(ctx, " 桔梗 ")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Search(ctx, p1, true)
	require.NoError(t, err)
	require.NoError(t, svc.ClearCache(ctx))
	assert.Empty(t, cache.entries)

	stats := svc.Stats(ctx)
	assert.Equal(t, int64(3), stats.Client.Requests)
	require.NotNil(t, stats.Cache)
	assert.Equal(t, "fake", stats.Cache.Backend)
	assert.Zero(t, stats.Cache.TotalEntries)
}

// TestNilCollaborators tests that optional collaborators may be absent.
func TestNilCollaborators(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeMarket(), nil, nil)

	removed, err := svc.InvalidateCache(ctx, domain.NewSearchParams("x"))
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := svc.InvalidateByQuery(ctx, "x")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.ClearCache(ctx))
	require.NoError(t, svc.Ping(ctx))
	require.NoError(t, svc.RecordClick(ctx, "t", "s"))

	searches, err := svc.RecentSearches(ctx)
	require.NoError(t, err)
	assert.Empty(t, searches)

	assert.Nil(t, svc.Stats(ctx).Cache)
	assert.Empty(t, svc.PopularAvatars())
	assert.Len(t, svc.Categories(), 5)
}

// TestPreferencesPassthrough tests click and search recording.
func TestPreferencesPassthrough(t *testing.T) {
	ctx := context.Background()
	prefs := &fakePrefs{}
	svc := newTestService(newFakeMarket(), nil, prefs)

	require.NoError(t, svc.RecordClick(ctx, " Dress ", " Atelier "))
	require.NoError(t, svc.RecordSearch(ctx, " 桔梗 "))
	require.NoError(t, svc.RecordSearch(ctx, "   "))

	assert.Equal(t, []string{"Dress"}, prefs.titles)
	assert.Equal(t, []string{"Atelier"}, prefs.shops)

	searches, err := svc.RecentSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"桔梗"}, searches)
}

func itemIDs(r *domain.SearchResult) []string {
	out := make([]string, len(r.Items))
	for i, item := range r.Items {
		out[i] = item.ID
	}
	return out
}
