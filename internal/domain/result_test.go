package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(prefix string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: prefix + string(rune('a'+i)), Name: prefix}
	}
	return items
}

// TestNewSearchResult_Pagination tests page math.
func TestNewSearchResult_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		wantPages  int
		wantHasNxt bool
	}{
		{"zero total", 0, 1, 1, false},
		{"exact pages", 48, 1, 2, true},
		{"partial last page", 49, 2, 3, true},
		{"last page", 49, 3, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSearchResult(nil, tt.total, tt.page, 24, "q")
			assert.Equal(t, tt.wantPages, r.TotalPages)
			assert.Equal(t, tt.wantHasNxt, r.HasNext)
		})
	}
}

func TestEmptyResult(t *testing.T) {
	r := EmptyResult("桔梗")
	assert.True(t, r.IsEmpty())
	assert.Equal(t, 0, r.TotalPages)
	assert.Equal(t, "桔梗", r.ResolvedQuery)
	assert.Equal(t, "A", r.AttemptLabel)
	assert.Equal(t, StrategyOriginal, r.UsedStrategy)
	assert.Equal(t, 1, r.AttemptsCount)
}

// TestSearchResult_Merge tests concatenation, right-side pagination and left-side provenance.
func TestSearchResult_Merge(t *testing.T) {
	r1 := NewSearchResult(makeItems("p1", 24), 30, 1, 24, "桔梗").WithProvenance(Provenance{
		RawQuery:      "ききょう",
		ResolvedQuery: "桔梗",
		AttemptLabel:  "C",
		UsedStrategy:  StrategyAlias,
		AttemptsCount: 3,
	}).AsCached(12)
	r2 := NewSearchResult(makeItems("p2", 6), 30, 2, 24, "other")

	merged := r1.Merge(r2)

	require.Len(t, merged.Items, len(r1.Items)+len(r2.Items))
	assert.Equal(t, r2.CurrentPage, merged.CurrentPage)
	assert.Equal(t, 30, merged.TotalCount)
	assert.Equal(t, r2.TotalPages, merged.TotalPages)
	assert.Equal(t, r2.HasNext, merged.HasNext)
	assert.Equal(t, "桔梗", merged.ResolvedQuery)
	assert.Equal(t, "ききょう", merged.RawQuery)
	assert.Equal(t, "C", merged.AttemptLabel)
	assert.Equal(t, 3, merged.AttemptsCount)
	assert.Equal(t, "桔梗", merged.Query)
	assert.False(t, merged.Cached)

	// inputs are untouched
	assert.Len(t, r1.Items, 24)
	assert.True(t, r1.Cached)
}

// TestSearchResult_Filters tests that filters recompute total_count.
func TestSearchResult_Filters(t *testing.T) {
	r := NewSearchResult([]Item{
		{ID: "free", PriceValue: intPtr(0), PriceType: PriceTypeFree},
		{ID: "cheap", PriceValue: intPtr(500), PriceType: PriceTypePaid},
		{ID: "dear", PriceValue: intPtr(5000), PriceType: PriceTypePaid},
		{ID: "unknown", PriceType: PriceTypeUnknown},
	}, 100, 1, 24, "q")

	byPrice := r.FilterByPrice(intPtr(100), intPtr(1000))
	assert.Equal(t, []string{"cheap", "unknown"}, ids(byPrice.Items))
	assert.Equal(t, 2, byPrice.TotalCount)

	free := r.FilterFreeOnly()
	assert.Equal(t, []string{"free"}, ids(free.Items))
	assert.Equal(t, 1, free.TotalCount)

	assert.Equal(t, 100, r.TotalCount)
	assert.Len(t, r.Items, 4)
}

// TestSearchResult_SortByPrice tests ordering with unknown prices last.
func TestSearchResult_SortByPrice(t *testing.T) {
	r := NewSearchResult([]Item{
		{ID: "unknown"},
		{ID: "dear", PriceValue: intPtr(5000)},
		{ID: "free", PriceValue: intPtr(0)},
		{ID: "cheap", PriceValue: intPtr(500)},
	}, 4, 1, 24, "q")

	assert.Equal(t, []string{"free", "cheap", "dear", "unknown"}, ids(r.SortByPrice(true).Items))
	assert.Equal(t, []string{"dear", "cheap", "free", "unknown"}, ids(r.SortByPrice(false).Items))
	assert.Equal(t, "unknown", r.Items[0].ID)
}

func TestSearchResult_SortByLikes(t *testing.T) {
	r := NewSearchResult([]Item{{ID: "a", Likes: 1}, {ID: "b", Likes: 9}, {ID: "c", Likes: 1}}, 3, 1, 24, "q")
	assert.Equal(t, []string{"b", "a", "c"}, ids(r.SortByLikes().Items))
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
