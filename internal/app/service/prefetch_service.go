package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// PrefetchService warms the result cache for popular avatars.
type PrefetchService struct {
	search   *SearchService
	maxPages int
	logger   *zap.Logger
}

// NewPrefetchService creates a new PrefetchService.
func NewPrefetchService(search *SearchService, maxPages int, logger *zap.Logger) *PrefetchService {
	if maxPages < 1 {
		maxPages = 1
	}
	return &PrefetchService{
		search:   search,
		maxPages: maxPages,
		logger:   logger,
	}
}

// PrefetchResult holds the result of warming one avatar.
type PrefetchResult struct {
	Avatar   string
	Count    int
	Duration time.Duration
	Error    error
}

// PrefetchAll warms every popular avatar in turn.
// Avatars run sequentially so the fetcher's pacing applies across them.
// Partial failures are allowed.
func (s *PrefetchService) PrefetchAll(ctx context.Context) []PrefetchResult {
	avatars := s.search.PopularAvatars()
	results := make([]PrefetchResult, 0, len(avatars))

	s.logger.Info("starting prefetch", zap.Int("avatar_count", len(avatars)))

	for _, entry := range avatars {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.PrefetchAvatar(ctx, entry.Canonical))
	}

	totalItems := 0
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		} else {
			totalItems += r.Count
		}
	}

	s.logger.Info("prefetch completed",
		zap.Int("total_items", totalItems),
		zap.Int("avatars_failed", failed),
	)

	return results
}

// PrefetchAvatar runs a cached multi-page search for avatar.
func (s *PrefetchService) PrefetchAvatar(ctx context.Context, avatar string) PrefetchResult {
	start := time.Now()
	result := PrefetchResult{Avatar: avatar}

	res, err := s.search.SearchAllPages(ctx, domain.NewSearchParams(avatar), s.maxPages, true)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		s.logger.Warn("prefetch failed",
			zap.String("avatar", avatar),
			zap.Error(err),
		)
		return result
	}

	result.Count = res.Count()

	s.logger.Debug("avatar prefetched",
		zap.String("avatar", avatar),
		zap.Int("count", result.Count),
		zap.Duration("duration", result.Duration),
	)

	return result
}
