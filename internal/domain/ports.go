package domain

import (
	"context"
	"time"
)

// PageFetcher retrieves raw marketplace HTML.
// Implementations: internal/infra/provider/booth/client.go
type PageFetcher interface {
	// FetchSearchPage returns the HTML of one search result page.
	// categoryID and sort may be empty.
	FetchSearchPage(ctx context.Context, keyword string, page int, categoryID, sort string) (string, error)

	// FetchItemPage returns the HTML of a single item detail page.
	FetchItemPage(ctx context.Context, itemID string) (string, error)

	// Stats reports client-side request counters.
	Stats() ClientStats
}

// ItemParser turns a search result page into items.
// It never fails: malformed or unrecognised markup yields no items and a zero total.
type ItemParser interface {
	Parse(html string) (items []Item, totalCount int)
}

// DescriptionExtractor pulls the description text out of an item detail page.
type DescriptionExtractor interface {
	ExtractDescription(html string) string
}

// ResultCache stores search results keyed by SearchParams.CacheKey.
// Implementations: internal/infra/memory, internal/infra/redis, internal/infra/postgres
type ResultCache interface {
	// Get returns the cached result, or nil if absent or expired.
	// The returned result is marked Cached with its age.
	Get(ctx context.Context, params SearchParams) (*SearchResult, error)

	// Put stores result under the params' key, replacing any previous entry.
	Put(ctx context.Context, params SearchParams, result *SearchResult) error

	// Invalidate removes the entry for params. Reports whether one existed.
	Invalidate(ctx context.Context, params SearchParams) (bool, error)

	// InvalidateByQuery removes every entry whose avatar query equals query.
	InvalidateByQuery(ctx context.Context, query string) (int, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Cleanup removes expired entries and returns how many were dropped.
	Cleanup(ctx context.Context) (int, error)

	// RecentQueries returns distinct cached queries, most recent first.
	RecentQueries(ctx context.Context, limit int) ([]string, error)

	// Stats returns hit/miss counters and entry counts.
	Stats(ctx context.Context) (CacheStats, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// UserPreferences is the read side of the user's interaction history used for relevance boosts.
type UserPreferences interface {
	// RecentClicks returns recently clicked item titles and shop names, most recent first.
	RecentClicks(ctx context.Context) (titles []string, shops []string, err error)
}

// PreferenceStore is the full preference store, including the write side used by the transport layer.
// Implementations: internal/infra/memory, internal/infra/postgres
type PreferenceStore interface {
	UserPreferences

	// RecordClick remembers a clicked item.
	RecordClick(ctx context.Context, title, shop string) error

	// RecordSearch remembers a submitted query.
	RecordSearch(ctx context.Context, query string) error

	// RecentSearches returns recent queries, most recent first.
	RecentSearches(ctx context.Context) ([]string, error)
}

// FavoriteStore persists saved listings keyed by item id.
// Implementations: internal/infra/memory, internal/infra/postgres
type FavoriteStore interface {
	// Add stores fav, replacing any favorite with the same item id.
	Add(ctx context.Context, fav Favorite) error

	// Remove deletes the favorite. Reports whether one existed.
	Remove(ctx context.Context, itemID string) (bool, error)

	// Get returns the favorite, or nil if absent.
	Get(ctx context.Context, itemID string) (*Favorite, error)

	// List returns every favorite in the given order.
	List(ctx context.Context, order FavoriteOrder) ([]Favorite, error)

	// Count returns the number of favorites.
	Count(ctx context.Context) (int, error)

	// UpdateMemo replaces the memo. Reports whether the favorite exists.
	UpdateMemo(ctx context.Context, itemID, memo string) (bool, error)

	// Clear deletes every favorite and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// Preference history bounds.
const (
	MaxRecentClicks   = 20
	MaxRecentSearches = 10
)

// CacheStats summarises a result cache.
type CacheStats struct {
	Backend        string        `json:"backend"`
	TotalEntries   int           `json:"total_entries"`
	ValidEntries   int           `json:"valid_entries"`
	ExpiredEntries int           `json:"expired_entries"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	HitRate        float64       `json:"hit_rate"`
	TTL            time.Duration `json:"ttl"`
}

// HitRatio computes hits / (hits + misses), zero when nothing was looked up.
func HitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// ClientStats summarises the page fetcher's traffic.
type ClientStats struct {
	Requests     int64  `json:"requests"`
	Failures     int64  `json:"failures"`
	RateLimited  int64  `json:"rate_limited"`
	BreakerState string `json:"breaker_state"`
}
