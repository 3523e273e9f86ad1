package domain

import "sort"

// Strategy tags recorded on a result once its query was resolved.
const (
	StrategyOriginal   = "original"
	StrategyNormalized = "normalized"
	StrategyNoSpace    = "no_space"
	StrategyQuoted     = "quoted"
	StrategyAlias      = "alias"
	StrategyMulti      = "multi"
)

// SearchResult holds one page (or a merged run of pages) of items plus the
// provenance of the query that produced it.
// Methods never modify the receiver; they return a new result.
type SearchResult struct {
	Items       []Item `json:"items"`
	TotalCount  int    `json:"total_count"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
	HasNext     bool   `json:"has_next"`
	Query       string `json:"query"`

	// Cache metadata, set on read and never persisted
	Cached          bool `json:"-"`
	CacheAgeSeconds int  `json:"-"`

	// Resolution provenance
	RawQuery           string `json:"raw_query"`
	ResolvedQuery      string `json:"resolved_query"`
	AttemptLabel       string `json:"attempt_label"`
	AttemptDescription string `json:"attempt_description"`
	CorrectionApplied  bool   `json:"correction_applied"`
	UsedStrategy       string `json:"used_strategy"`
	AttemptsCount      int    `json:"attempts_count"`
}

// NewSearchResult builds a page result with pagination derived from total.
//
//	total_pages = max(1, ceil(total / perPage))
//	has_next    = page < total_pages
func NewSearchResult(items []Item, total, page, perPage int, query string) *SearchResult {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return &SearchResult{
		Items:         items,
		TotalCount:    total,
		CurrentPage:   page,
		TotalPages:    totalPages,
		HasNext:       page < totalPages,
		Query:         query,
		ResolvedQuery: query,
		AttemptLabel:  "A",
		UsedStrategy:  StrategyOriginal,
		AttemptsCount: 1,
	}
}

// EmptyResult returns a result with no items for query.
func EmptyResult(query string) *SearchResult {
	return &SearchResult{
		Items:         []Item{},
		CurrentPage:   1,
		Query:         query,
		ResolvedQuery: query,
		AttemptLabel:  "A",
		UsedStrategy:  StrategyOriginal,
		AttemptsCount: 1,
	}
}

// IsEmpty reports whether the result holds no items.
func (r *SearchResult) IsEmpty() bool {
	return len(r.Items) == 0
}

// Count returns the number of items held.
func (r *SearchResult) Count() int {
	return len(r.Items)
}

// Merge appends other's items. Pagination and total come from other; query
// and resolution provenance are kept from r. The merged result is never cached.
func (r *SearchResult) Merge(other *SearchResult) *SearchResult {
	out := r.copyMeta()
	out.Items = make([]Item, 0, len(r.Items)+len(other.Items))
	out.Items = append(out.Items, r.Items...)
	out.Items = append(out.Items, other.Items...)
	out.TotalCount = other.TotalCount
	out.CurrentPage = other.CurrentPage
	out.TotalPages = other.TotalPages
	out.HasNext = other.HasNext
	out.Cached = false
	out.CacheAgeSeconds = 0
	return out
}

// FilterByPrice keeps items inside [minPrice, maxPrice]; total becomes the kept count.
func (r *SearchResult) FilterByPrice(minPrice, maxPrice *int) *SearchResult {
	return r.filter(func(i Item) bool { return i.MatchesPriceRange(minPrice, maxPrice) })
}

// FilterFreeOnly keeps free items; total becomes the kept count.
func (r *SearchResult) FilterFreeOnly() *SearchResult {
	return r.filter(Item.IsFree)
}

// SortByPrice orders items by price. Items with an unknown price go last in both directions.
func (r *SearchResult) SortByPrice(ascending bool) *SearchResult {
	out := r.withItems(append([]Item(nil), r.Items...))
	sort.SliceStable(out.Items, func(a, b int) bool {
		pa, pb := out.Items[a].PriceValue, out.Items[b].PriceValue
		switch {
		case pa == nil:
			return false
		case pb == nil:
			return true
		case ascending:
			return *pa < *pb
		default:
			return *pa > *pb
		}
	})
	return out
}

// SortByLikes orders items by wish count, most liked first.
func (r *SearchResult) SortByLikes() *SearchResult {
	out := r.withItems(append([]Item(nil), r.Items...))
	sort.SliceStable(out.Items, func(a, b int) bool {
		return out.Items[a].Likes > out.Items[b].Likes
	})
	return out
}

// WithItems returns a copy of r holding items, everything else unchanged.
func (r *SearchResult) WithItems(items []Item) *SearchResult {
	return r.withItems(items)
}

// AsCached returns a copy of r marked as served from cache.
func (r *SearchResult) AsCached(ageSeconds int) *SearchResult {
	out := r.withItems(r.Items)
	out.Cached = true
	out.CacheAgeSeconds = ageSeconds
	return out
}

// Provenance describes which attempt produced a result.
type Provenance struct {
	RawQuery           string
	ResolvedQuery      string
	AttemptLabel       string
	AttemptDescription string
	CorrectionApplied  bool
	UsedStrategy       string
	AttemptsCount      int
}

// WithProvenance returns a copy of r tagged with p.
func (r *SearchResult) WithProvenance(p Provenance) *SearchResult {
	out := r.withItems(r.Items)
	out.RawQuery = p.RawQuery
	out.ResolvedQuery = p.ResolvedQuery
	out.AttemptLabel = p.AttemptLabel
	out.AttemptDescription = p.AttemptDescription
	out.CorrectionApplied = p.CorrectionApplied
	out.UsedStrategy = p.UsedStrategy
	out.AttemptsCount = p.AttemptsCount
	return out
}

// WithAttemptsCount returns a copy of r with the executed attempt count set.
func (r *SearchResult) WithAttemptsCount(n int) *SearchResult {
	out := r.withItems(r.Items)
	out.AttemptsCount = n
	return out
}

func (r *SearchResult) filter(keep func(Item) bool) *SearchResult {
	kept := make([]Item, 0, len(r.Items))
	for _, item := range r.Items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	out := r.withItems(kept)
	out.TotalCount = len(kept)
	return out
}

func (r *SearchResult) withItems(items []Item) *SearchResult {
	out := r.copyMeta()
	out.Items = items
	return out
}

func (r *SearchResult) copyMeta() *SearchResult {
	out := *r
	out.Items = nil
	return &out
}
