package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"booth-outfit-search/internal/domain"
)

type fakePage struct {
	items []domain.Item
	total int
}

// fakeMarket serves canned pages keyed by "query#page" and acts as both
// fetcher and parser: the fetched "html" is the page key.
type fakeMarket struct {
	mu          sync.Mutex
	pages       map[string]fakePage
	details     map[string]string
	detailErrs  map[string]error
	pageErrs    map[int]error
	err         error
	calls       []string
	pageCalls   []int
	detailCalls []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		pages:      make(map[string]fakePage),
		details:    make(map[string]string),
		detailErrs: make(map[string]error),
		pageErrs:   make(map[int]error),
	}
}

func (m *fakeMarket) addPage(query string, page int, items []domain.Item, total int) {
	m.pages[fmt.Sprintf("%s#%d", query, page)] = fakePage{items: items, total: total}
}

func (m *fakeMarket) FetchSearchPage(_ context.Context, keyword string, page int, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := strings.TrimSuffix(keyword, " "+domain.KeywordSuffix)
	m.calls = append(m.calls, query)
	m.pageCalls = append(m.pageCalls, page)
	if m.err != nil {
		return "", m.err
	}
	if err := m.pageErrs[page]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%d", query, page), nil
}

func (m *fakeMarket) FetchItemPage(_ context.Context, itemID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detailCalls = append(m.detailCalls, itemID)
	if err := m.detailErrs[itemID]; err != nil {
		return "", err
	}
	return m.details[itemID], nil
}

func (m *fakeMarket) Stats() domain.ClientStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ClientStats{Requests: int64(len(m.calls) + len(m.detailCalls)), BreakerState: "closed"}
}

func (m *fakeMarket) Parse(html string) ([]domain.Item, int) {
	p, ok := m.pages[html]
	if !ok {
		return nil, 0
	}
	return append([]domain.Item(nil), p.items...), p.total
}

// plainExtractor treats the whole page as the description.
type plainExtractor struct{}

func (plainExtractor) ExtractDescription(html string) string { return html }

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.SearchResult
	queries map[string]string
	getErr  error
	putErr  error
	puts    int
	hits    int64
	misses  int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]*domain.SearchResult),
		queries: make(map[string]string),
	}
}

func (c *fakeCache) Get(_ context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}
	r, ok := c.entries[params.CacheKey()]
	if !ok {
		c.misses++
		return nil, nil
	}
	c.hits++
	return r.AsCached(5), nil
}

func (c *fakeCache) Put(_ context.Context, params domain.SearchParams, result *domain.SearchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[params.CacheKey()] = result
	c.queries[params.CacheKey()] = params.AvatarName
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, params domain.SearchParams) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[params.CacheKey()]
	delete(c.entries, params.CacheKey())
	delete(c.queries, params.CacheKey())
	return ok, nil
}

func (c *fakeCache) InvalidateByQuery(_ context.Context, query string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, q := range c.queries {
		if q == query {
			delete(c.entries, key)
			delete(c.queries, key)
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*domain.SearchResult)
	c.queries = make(map[string]string)
	return nil
}

func (c *fakeCache) Cleanup(context.Context) (int, error) { return 0, nil }

func (c *fakeCache) RecentQueries(context.Context, int) ([]string, error) { return []string{}, nil }

func (c *fakeCache) Stats(context.Context) (domain.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Backend:      "fake",
		TotalEntries: len(c.entries),
		ValidEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		HitRate:      domain.HitRatio(c.hits, c.misses),
		TTL:          time.Hour,
	}, nil
}

func (c *fakeCache) Ping(context.Context) error { return c.getErr }

type fakePrefs struct {
	titles   []string
	shops    []string
	searches []string
	err      error
}

func (p *fakePrefs) RecentClicks(context.Context) ([]string, []string, error) {
	return p.titles, p.shops, p.err
}

func (p *fakePrefs) RecordClick(_ context.Context, title, shop string) error {
	p.titles = append([]string{title}, p.titles...)
	p.shops = append([]string{shop}, p.shops...)
	return nil
}

func (p *fakePrefs) RecordSearch(_ context.Context, query string) error {
	p.searches = append([]string{query}, p.searches...)
	return nil
}

func (p *fakePrefs) RecentSearches(context.Context) ([]string, error) {
	return p.searches, nil
}

var errBoom = errors.New("boom")

// itemsFor builds n listings titled after query with ids query-0..n-1.
func itemsFor(query string, n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:        fmt.Sprintf("%s-%d", query, i),
			Name:      query + " 衣装",
			PriceType: domain.PriceTypeUnknown,
		}
	}
	return items
}

func countingCancel(trueFrom int) (func() bool, *int) {
	calls := 0
	return func() bool {
		calls++
		return calls >= trueFrom
	}, &calls
}
