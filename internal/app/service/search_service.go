// Package service provides application use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"booth-outfit-search/internal/alias"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/planner"
	"booth-outfit-search/internal/relevance"
	"booth-outfit-search/internal/textnorm"
)

// Deps holds the collaborators of a SearchService.
// Cache, Preferences, Extractor and Aliases are optional.
type Deps struct {
	Fetcher     domain.PageFetcher
	Parser      domain.ItemParser
	Extractor   domain.DescriptionExtractor
	Cache       domain.ResultCache
	Preferences domain.PreferenceStore
	Scorer      *relevance.Scorer
	Aliases     *alias.Resolver
}

// Options tunes a SearchService.
type Options struct {
	// VerifyTTL is how long a detail verification outcome is remembered.
	VerifyTTL time.Duration
	// VerifyMemoSize bounds the number of remembered outcomes.
	VerifyMemoSize int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		VerifyTTL:      time.Hour,
		VerifyMemoSize: 1024,
	}
}

// SearchService resolves avatar queries against the marketplace, ranks the
// listings and caches the outcome.
//
// Calls into one service are expected from a single worker at a time; the
// collaborators own their own locking.
type SearchService struct {
	fetcher   domain.PageFetcher
	parser    domain.ItemParser
	extractor domain.DescriptionExtractor
	cache     domain.ResultCache
	prefs     domain.PreferenceStore
	scorer    *relevance.Scorer
	aliases   *alias.Resolver
	planner   *planner.Planner
	verified  *expirable.LRU[string, bool]
	logger    *zap.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(deps Deps, opts Options, logger *zap.Logger) *SearchService {
	if opts.VerifyTTL <= 0 {
		opts.VerifyTTL = DefaultOptions().VerifyTTL
	}
	if opts.VerifyMemoSize <= 0 {
		opts.VerifyMemoSize = DefaultOptions().VerifyMemoSize
	}

	scorer := deps.Scorer
	if scorer == nil {
		scorer = relevance.NewScorer(relevance.Defaults())
	}

	var lookup planner.AliasLookup
	if deps.Aliases != nil {
		lookup = deps.Aliases
	}

	return &SearchService{
		fetcher:   deps.Fetcher,
		parser:    deps.Parser,
		extractor: deps.Extractor,
		cache:     deps.Cache,
		prefs:     deps.Preferences,
		scorer:    scorer,
		aliases:   deps.Aliases,
		planner:   planner.New(lookup),
		verified:  expirable.NewLRU[string, bool](opts.VerifyMemoSize, nil, opts.VerifyTTL),
		logger:    logger,
	}
}

// Search runs a single-page search for params.
//
// Cache hits skip fetching and re-scoring. Cache failures are logged and
// treated as misses. Only fetch errors are returned.
func (s *SearchService) Search(ctx context.Context, params domain.SearchParams, useCache bool) (*domain.SearchResult, error) {
	params.Validate()

	if useCache && s.cache != nil {
		cached, err := s.cache.Get(ctx, params)
		switch {
		case err != nil:
			s.logger.Warn("cache lookup failed, fetching live",
				zap.String("avatar", params.AvatarName),
				zap.Error(err),
			)
		case cached != nil:
			s.logger.Debug("cache hit",
				zap.String("avatar", params.AvatarName),
				zap.Int("page", params.Page),
				zap.Int("age_seconds", cached.CacheAgeSeconds),
			)
			return applyClientFilters(cached, params), nil
		default:
			s.logger.Debug("cache miss",
				zap.String("avatar", params.AvatarName),
				zap.Int("page", params.Page),
			)
		}
	}

	html, err := s.fetcher.FetchSearchPage(ctx,
		params.SearchKeyword(),
		params.Page,
		params.Category.ID(),
		params.Sort.BoothParam(),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching search page: %w", err)
	}

	items, total := s.parser.Parse(html)
	if items == nil {
		items = []domain.Item{}
	}

	if params.Sort == domain.SortRelevance {
		items = s.scorer.Rank(items, params.AvatarName, s.history(ctx))
	}

	result := domain.NewSearchResult(items, total, params.Page, params.PerPage, params.AvatarName)

	if useCache && s.cache != nil && !result.IsEmpty() {
		if err := s.cache.Put(ctx, params, result); err != nil {
			s.logger.Warn("cache write failed",
				zap.String("avatar", params.AvatarName),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("search page fetched",
		zap.String("avatar", params.AvatarName),
		zap.Int("page", params.Page),
		zap.Int("count", result.Count()),
		zap.Int("total", result.TotalCount),
	)

	return applyClientFilters(result, params), nil
}

// history returns the user's recent clicks, empty when unavailable.
func (s *SearchService) history(ctx context.Context) relevance.History {
	if s.prefs == nil {
		return relevance.History{}
	}

	titles, shops, err := s.prefs.RecentClicks(ctx)
	if err != nil {
		s.logger.Warn("reading click history failed", zap.Error(err))
		return relevance.History{}
	}

	return relevance.History{Titles: titles, Shops: shops}
}

// applyClientFilters applies the price filters and price ordering the
// marketplace cannot apply itself. FreeOnly takes precedence over the
// min/max bounds.
func applyClientFilters(result *domain.SearchResult, params domain.SearchParams) *domain.SearchResult {
	if pr := params.PriceRange; !pr.IsEmpty() {
		if pr.FreeOnly {
			result = result.FilterFreeOnly()
		} else {
			result = result.FilterByPrice(pr.MinPrice, pr.MaxPrice)
		}
	}

	switch params.Sort {
	case domain.SortPriceAsc:
		result = result.SortByPrice(true)
	case domain.SortPriceDesc:
		result = result.SortByPrice(false)
	}

	return result
}

// cancelled reports whether the caller asked to stop.
func cancelled(ctx context.Context, check func() bool) bool {
	if ctx.Err() != nil {
		return true
	}
	return check != nil && check()
}

// isCancellation reports whether err is the context's own cancellation.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// InvalidateCache drops the cached entry for params.
func (s *SearchService) InvalidateCache(ctx context.Context, params domain.SearchParams) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	params.Validate()

	removed, err := s.cache.Invalidate(ctx, params)
	if err != nil {
		return false, fmt.Errorf("invalidating cache entry: %w", err)
	}
	return removed, nil
}

// InvalidateByQuery drops every cached page for query.
func (s *SearchService) InvalidateByQuery(ctx context.Context, query string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	n, err := s.cache.InvalidateByQuery(ctx, strings.TrimSpace(query))
	if err != nil {
		return 0, fmt.Errorf("invalidating cached query: %w", err)
	}

	s.logger.Info("cache invalidated by query",
		zap.String("query", query),
		zap.Int("removed", n),
	)

	return n, nil
}

// ClearCache drops every cached result and the verification memo.
func (s *SearchService) ClearCache(ctx context.Context) error {
	s.verified.Purge()

	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	s.logger.Info("cache cleared")

	return nil
}

// CleanupCache drops expired cached results.
func (s *SearchService) CleanupCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	n, err := s.cache.Cleanup(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleaning up cache: %w", err)
	}
	return n, nil
}

// RecentQueries returns the most recently cached queries.
func (s *SearchService) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if s.cache == nil {
		return []string{}, nil
	}
	return s.cache.RecentQueries(ctx, limit)
}

// Stats is a snapshot of the fetcher and cache counters.
type Stats struct {
	Client        domain.ClientStats `json:"client"`
	Cache         *domain.CacheStats `json:"cache,omitempty"`
	VerifiedItems int                `json:"verified_items"`
}

// Stats returns fetcher and cache statistics. A failing cache is reported
// without cache stats rather than as an error.
func (s *SearchService) Stats(ctx context.Context) Stats {
	stats := Stats{
		Client:        s.fetcher.Stats(),
		VerifiedItems: s.verified.Len(),
	}

	if s.cache != nil {
		cs, err := s.cache.Stats(ctx)
		if err != nil {
			s.logger.Warn("reading cache stats failed", zap.Error(err))
		} else {
			stats.Cache = &cs
		}
	}

	return stats
}

// Ping checks the cache backend, the only stateful dependency.
func (s *SearchService) Ping(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}

// Categories returns the selectable marketplace categories.
func (s *SearchService) Categories() []domain.CategoryInfo {
	return domain.Categories()
}

// PopularAvatars returns the avatars flagged popular in the alias dataset.
func (s *SearchService) PopularAvatars() []alias.Entry {
	if s.aliases == nil {
		return []alias.Entry{}
	}
	return s.aliases.Popular()
}

// RecordClick stores a clicked listing for future relevance boosts.
func (s *SearchService) RecordClick(ctx context.Context, title, shop string) error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.RecordClick(ctx, strings.TrimSpace(title), strings.TrimSpace(shop))
}

// RecordSearch stores a submitted query in the recent search list.
func (s *SearchService) RecordSearch(ctx context.Context, query string) error {
	if s.prefs == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	return s.prefs.RecordSearch(ctx, strings.TrimSpace(query))
}

// RecentSearches returns recently submitted queries, most recent first.
func (s *SearchService) RecentSearches(ctx context.Context) ([]string, error) {
	if s.prefs == nil {
		return []string{}, nil
	}
	return s.prefs.RecentSearches(ctx)
}

// verificationTokens returns the folded avatar tokens searched for in descriptions.
func verificationTokens(avatar string) []string {
	return strings.Fields(textnorm.Fold(avatar))
}
