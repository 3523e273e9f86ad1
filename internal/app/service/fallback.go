package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/planner"
	"booth-outfit-search/internal/textnorm"
)

// Progress describes the attempt about to run.
type Progress struct {
	Attempt int
	Total   int
	Label   string
	Query   string
	Message string
}

// FallbackOptions controls SearchWithFallback.
type FallbackOptions struct {
	UseCache bool

	// CancelCheck is polled before each attempt and each verification fetch.
	CancelCheck func() bool

	// Progress is notified before each attempt.
	Progress func(Progress)

	// MinResults is the score at which the loop stops. Zero uses params.MinResults.
	MinResults int

	// MaxAttempts caps executed attempts. Zero uses the default; negative
	// disables fallback entirely.
	MaxAttempts int
}

// DefaultFallbackOptions returns cache-enabled options with default bounds.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		UseCache:    true,
		MaxAttempts: domain.DefaultMaxAttempts,
	}
}

// SearchWithFallback searches page 1 of a fresh query, retrying with
// alternate formulations of the query until one yields enough results.
//
// Attempts run in this order, duplicates removed, capped at MaxAttempts:
//
//	the raw query as typed
//	the normalized query
//	the canonical alias (when params.AliasEnabled)
//	the query without spaces, or quoted
//	remaining multi-input candidates (when params.AllowMulti)
//
// The result with the highest count wins; ties keep the earlier attempt.
// Cancellation is not an error: the best result so far is returned.
func (s *SearchService) SearchWithFallback(
	ctx context.Context,
	params domain.SearchParams,
	opts FallbackOptions,
) (*domain.SearchResult, error) {
	params.Validate()

	if params.Page != 1 || !params.NormalizeEnabled || opts.MaxAttempts < 0 {
		result, err := s.Search(ctx, params, opts.UseCache)
		if err != nil {
			return nil, err
		}
		return s.verifyIfRequested(ctx, result, params, params.AvatarName, opts.CancelCheck), nil
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	minResults := opts.MinResults
	if minResults <= 0 {
		minResults = params.MinResults
	}
	if minResults <= 0 {
		minResults = domain.DefaultMinResults
	}

	raw := params.RawQuery
	if strings.TrimSpace(raw) == "" {
		raw = params.AvatarName
	}
	trimmed := strings.TrimSpace(raw)

	attempts := s.planAttempts(raw, params, maxAttempts)

	var (
		best      *domain.SearchResult
		bestScore int
		executed  int
	)

	for i, attempt := range attempts {
		if cancelled(ctx, opts.CancelCheck) {
			s.logger.Debug("fallback cancelled", zap.Int("executed", executed))
			break
		}

		notify(opts.Progress, i+1, len(attempts), attempt)

		result, err := s.Search(ctx, params.WithQuery(attempt.Query), opts.UseCache)
		if err != nil {
			if isCancellation(ctx, err) {
				break
			}
			return nil, err
		}
		executed++

		result = result.WithProvenance(domain.Provenance{
			RawQuery:           raw,
			ResolvedQuery:      attempt.Query,
			AttemptLabel:       attempt.Label,
			AttemptDescription: attempt.Description,
			CorrectionApplied:  attempt.Label != planner.LabelPrimary || attempt.Query != trimmed || attempt.Description != "",
			UsedStrategy:       attempt.Strategy,
		})

		score := resultScore(result)
		if best == nil || score > bestScore {
			best, bestScore = result, score
		}

		s.logger.Debug("fallback attempt finished",
			zap.Int("attempt", i+1),
			zap.String("label", attempt.Label),
			zap.String("query", attempt.Query),
			zap.Int("score", score),
		)

		if !result.IsEmpty() && score >= minResults {
			break
		}
	}

	if best == nil {
		return domain.EmptyResult(params.AvatarName).WithProvenance(domain.Provenance{
			RawQuery:      raw,
			ResolvedQuery: params.AvatarName,
			AttemptLabel:  planner.LabelPrimary,
			UsedStrategy:  domain.StrategyOriginal,
			AttemptsCount: executed,
		}), nil
	}

	best = best.WithAttemptsCount(executed)

	s.logger.Info("search completed",
		zap.String("raw_query", raw),
		zap.String("resolved_query", best.ResolvedQuery),
		zap.String("strategy", best.UsedStrategy),
		zap.Int("attempts", executed),
		zap.Int("count", best.Count()),
	)

	return s.verifyIfRequested(ctx, best, params, best.ResolvedQuery, opts.CancelCheck), nil
}

// verifyIfRequested runs detail verification when params ask for it.
func (s *SearchService) verifyIfRequested(
	ctx context.Context,
	result *domain.SearchResult,
	params domain.SearchParams,
	avatar string,
	check func() bool,
) *domain.SearchResult {
	if !params.VerifyMode || params.VerifyTopN <= 0 {
		return result
	}
	return s.verify(ctx, result, avatar, params.VerifyTopN, check)
}

// planAttempts composes the attempt chain for raw.
func (s *SearchService) planAttempts(raw string, params domain.SearchParams, maxAttempts int) []planner.Attempt {
	planned := s.planner.BuildAttempts(raw, planner.Options{
		NormalizeEnabled: params.NormalizeEnabled,
		AllowMulti:       params.AllowMulti,
		MaxAttempts:      maxAttempts + 3,
	})

	var primary, mechanical, aliases, multi []planner.Attempt
	for i, a := range planned {
		switch {
		case i == 0:
			primary = append(primary, a)
		case a.Label == planner.LabelAlias:
			aliases = append(aliases, a)
		case a.Label == planner.LabelMechanical:
			mechanical = append(mechanical, a)
		default:
			multi = append(multi, a)
		}
	}

	chain := make([]planner.Attempt, 0, len(planned)+1)

	// a multi-input string is never sent as typed
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && !(params.AllowMulti && len(textnorm.SplitMulti(raw)) > 1) {
		chain = append(chain, planner.Attempt{
			Label:    planner.LabelPrimary,
			Query:    trimmed,
			Strategy: domain.StrategyOriginal,
		})
	}

	chain = append(chain, primary...)
	if params.AliasEnabled {
		chain = append(chain, aliases...)
	}
	chain = append(chain, mechanical...)
	chain = append(chain, multi...)

	chain = planner.Dedupe(chain)

	limit := maxAttempts
	if !params.FallbackEnabled {
		limit = 1
	}
	if len(chain) > limit {
		chain = chain[:limit]
	}

	return chain
}

// resultScore is total_count when the provider reported one, else the item count.
func resultScore(r *domain.SearchResult) int {
	if r.TotalCount > 0 {
		return r.TotalCount
	}
	return r.Count()
}

func notify(progress func(Progress), n, total int, attempt planner.Attempt) {
	if progress == nil {
		return
	}

	msg := fmt.Sprintf("searching %q", attempt.Query)
	if attempt.Label != planner.LabelPrimary {
		msg = fmt.Sprintf("correcting query: trying %q", attempt.Query)
	}

	progress(Progress{
		Attempt: n,
		Total:   total,
		Label:   attempt.Label,
		Query:   attempt.Query,
		Message: msg,
	})
}

// verify checks the top n items' detail descriptions for the avatar name.
// It never fails: fetch errors leave an item unverified and a missing
// extractor skips verification altogether.
func (s *SearchService) verify(
	ctx context.Context,
	result *domain.SearchResult,
	avatar string,
	n int,
	check func() bool,
) *domain.SearchResult {
	if s.extractor == nil {
		s.logger.Warn("description extractor unavailable, skipping verification")
		return result
	}

	tokens := verificationTokens(avatar)
	if len(tokens) == 0 || result.IsEmpty() {
		return result
	}

	n = min(n, result.Count())
	items := append([]domain.Item(nil), result.Items...)
	checked := 0

	for i := 0; i < n; i++ {
		item := items[i]
		if item.ID == "" {
			continue
		}

		if ok, hit := s.verified.Get(item.ID); hit {
			items[i] = item.WithVerified(ok)
			continue
		}

		if cancelled(ctx, check) {
			s.logger.Debug("verification cancelled", zap.Int("checked", checked))
			break
		}

		html, err := s.fetcher.FetchItemPage(ctx, item.ID)
		if err != nil {
			s.logger.Warn("item detail fetch failed, leaving unverified",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			continue
		}
		checked++

		ok := containsAnyToken(textnorm.Fold(s.extractor.ExtractDescription(html)), tokens)
		s.verified.Add(item.ID, ok)
		items[i] = item.WithVerified(ok)
	}

	s.logger.Debug("verification finished",
		zap.Int("top_n", n),
		zap.Int("fetched", checked),
	)

	return result.WithItems(items)
}

func containsAnyToken(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// SearchAllPages resolves the query on page 1 with fallback and then walks
// the following pages with the resolved query, merging as it goes. It stops
// at maxPages, the last page, the first empty page or cancellation.
func (s *SearchService) SearchAllPages(
	ctx context.Context,
	params domain.SearchParams,
	maxPages int,
	useCache bool,
) (*domain.SearchResult, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	opts := DefaultFallbackOptions()
	opts.UseCache = useCache

	first, err := s.SearchWithFallback(ctx, params.WithPage(1), opts)
	if err != nil {
		return nil, err
	}

	resolved := params
	if first.ResolvedQuery != "" {
		resolved = params.WithQuery(first.ResolvedQuery)
	}

	merged := first
	last := min(maxPages, first.TotalPages)

	for page := 2; page <= last; page++ {
		if ctx.Err() != nil {
			break
		}

		next, err := s.Search(ctx, resolved.WithPage(page), useCache)
		if err != nil {
			if isCancellation(ctx, err) {
				break
			}
			return nil, err
		}
		if next.IsEmpty() {
			break
		}

		merged = merged.Merge(next)
	}

	s.logger.Info("multi-page search completed",
		zap.String("resolved_query", merged.ResolvedQuery),
		zap.Int("pages", merged.CurrentPage),
		zap.Int("count", merged.Count()),
	)

	return merged, nil
}
