package dto

import (
	"time"

	"booth-outfit-search/internal/alias"
	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/domain"
)

// ItemResponse represents a single listing in the response.
type ItemResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	ShopName     string   `json:"shop_name,omitempty"`
	ShopURL      string   `json:"shop_url,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	// Price
	PriceText  string `json:"price_text"`
	PriceValue *int   `json:"price_value"`
	PriceType  string `json:"price_type"`

	Likes     int    `json:"likes"`
	CreatedAt string `json:"created_at,omitempty"`

	// Relevance
	Score         float64  `json:"score"`
	Label         string   `json:"label,omitempty"`
	MatchedTokens []string `json:"matched_tokens,omitempty"`
	Verified      bool     `json:"verified"`
}

// FromDomainItem converts domain.Item to ItemResponse.
func FromDomainItem(i domain.Item) ItemResponse {
	resp := ItemResponse{
		ID:            i.ID,
		Name:          i.Name,
		URL:           i.URL,
		ThumbnailURL:  i.ThumbnailURL,
		ShopName:      i.ShopName,
		ShopURL:       i.ShopURL,
		Tags:          i.Tags,
		PriceText:     i.PriceText,
		PriceValue:    i.PriceValue,
		PriceType:     string(i.PriceType),
		Likes:         i.Likes,
		Score:         i.RelevanceScore,
		Label:         i.RelevanceLabel,
		MatchedTokens: i.MatchedTokens,
		Verified:      i.VerifiedInDescription,
	}
	if i.CreatedAt != nil {
		resp.CreatedAt = i.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// SearchResponse represents the search results response.
type SearchResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
	Resolution ResolutionMeta `json:"resolution"`
	Cache      CacheMeta      `json:"cache"`
}

// PaginationMeta holds pagination metadata.
type PaginationMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ResolutionMeta describes how the query was resolved.
type ResolutionMeta struct {
	RawQuery          string `json:"raw_query"`
	ResolvedQuery     string `json:"resolved_query"`
	Attempt           string `json:"attempt"`
	Description       string `json:"description,omitempty"`
	Strategy          string `json:"strategy"`
	CorrectionApplied bool   `json:"correction_applied"`
	Attempts          int    `json:"attempts"`
}

// CacheMeta tells whether the page came from the cache.
type CacheMeta struct {
	Hit        bool `json:"hit"`
	AgeSeconds int  `json:"age_seconds,omitempty"`
}

// FromSearchResult converts domain.SearchResult to SearchResponse.
func FromSearchResult(result *domain.SearchResult) SearchResponse {
	items := make([]ItemResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = FromDomainItem(item)
	}

	raw := result.RawQuery
	if raw == "" {
		raw = result.Query
	}

	return SearchResponse{
		Items: items,
		Pagination: PaginationMeta{
			Total:      result.TotalCount,
			Page:       result.CurrentPage,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
		},
		Resolution: ResolutionMeta{
			RawQuery:          raw,
			ResolvedQuery:     result.ResolvedQuery,
			Attempt:           result.AttemptLabel,
			Description:       result.AttemptDescription,
			Strategy:          result.UsedStrategy,
			CorrectionApplied: result.CorrectionApplied,
			Attempts:          result.AttemptsCount,
		},
		Cache: CacheMeta{
			Hit:        result.Cached,
			AgeSeconds: result.CacheAgeSeconds,
		},
	}
}

// PrefetchResultResponse represents one avatar of a prefetch run.
type PrefetchResultResponse struct {
	Avatar   string `json:"avatar"`
	Count    int    `json:"count"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// PrefetchResponse represents the response for a prefetch run.
type PrefetchResponse struct {
	Results []PrefetchResultResponse `json:"results"`
	Summary PrefetchSummary          `json:"summary"`
}

// PrefetchSummary holds the totals of a prefetch run.
type PrefetchSummary struct {
	TotalItems int `json:"total_items"`
	AvatarsOK  int `json:"avatars_ok"`
	AvatarsErr int `json:"avatars_failed"`
}

// FromPrefetchResults converts service.PrefetchResult slice to PrefetchResponse.
func FromPrefetchResults(results []service.PrefetchResult) PrefetchResponse {
	resp := PrefetchResponse{
		Results: make([]PrefetchResultResponse, len(results)),
	}

	for i, r := range results {
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
			resp.Summary.AvatarsErr++
		} else {
			resp.Summary.TotalItems += r.Count
			resp.Summary.AvatarsOK++
		}

		resp.Results[i] = PrefetchResultResponse{
			Avatar:   r.Avatar,
			Count:    r.Count,
			Duration: r.Duration.String(),
			Error:    errMsg,
		}
	}

	return resp
}

// StatsResponse represents client and cache statistics.
type StatsResponse struct {
	Client         ClientStatsResponse `json:"client"`
	Cache          *CacheStatsResponse `json:"cache,omitempty"`
	VerifiedItems  int                 `json:"verified_items"`
	RecentQueries  []string            `json:"recent_queries"`
	RecentSearches []string            `json:"recent_searches"`
}

// ClientStatsResponse holds marketplace client counters.
type ClientStatsResponse struct {
	Requests     int64  `json:"requests"`
	Failures     int64  `json:"failures"`
	RateLimited  int64  `json:"rate_limited"`
	BreakerState string `json:"breaker_state"`
}

// CacheStatsResponse holds result cache counters.
type CacheStatsResponse struct {
	Backend        string  `json:"backend"`
	TotalEntries   int     `json:"total_entries"`
	ValidEntries   int     `json:"valid_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRate        float64 `json:"hit_rate"`
	TTLSeconds     int     `json:"ttl_seconds"`
}

// FromStats converts service.Stats to StatsResponse.
func FromStats(s service.Stats, recentQueries, recentSearches []string) StatsResponse {
	if recentQueries == nil {
		recentQueries = []string{}
	}
	if recentSearches == nil {
		recentSearches = []string{}
	}

	resp := StatsResponse{
		Client: ClientStatsResponse{
			Requests:     s.Client.Requests,
			Failures:     s.Client.Failures,
			RateLimited:  s.Client.RateLimited,
			BreakerState: s.Client.BreakerState,
		},
		VerifiedItems:  s.VerifiedItems,
		RecentQueries:  recentQueries,
		RecentSearches: recentSearches,
	}

	if s.Cache != nil {
		resp.Cache = &CacheStatsResponse{
			Backend:        s.Cache.Backend,
			TotalEntries:   s.Cache.TotalEntries,
			ValidEntries:   s.Cache.ValidEntries,
			ExpiredEntries: s.Cache.ExpiredEntries,
			Hits:           s.Cache.Hits,
			Misses:         s.Cache.Misses,
			HitRate:        s.Cache.HitRate,
			TTLSeconds:     int(s.Cache.TTL.Seconds()),
		}
	}

	return resp
}

// AvatarResponse represents one popular avatar.
type AvatarResponse struct {
	Canonical   string `json:"canonical"`
	NameKR      string `json:"name_kr,omitempty"`
	NameEN      string `json:"name_en,omitempty"`
	DisplayName string `json:"display_name"`
}

// FromAliasEntries converts alias entries to AvatarResponse values.
func FromAliasEntries(entries []alias.Entry) []AvatarResponse {
	out := make([]AvatarResponse, len(entries))
	for i, e := range entries {
		out[i] = AvatarResponse{
			Canonical:   e.Canonical,
			NameKR:      e.NameKR,
			NameEN:      e.NameEN,
			DisplayName: e.DisplayName(),
		}
	}
	return out
}

// RemovedResponse reports how many cache entries an operation dropped.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
