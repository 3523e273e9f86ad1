package memory

import (
	"context"
	"sync"

	"booth-outfit-search/internal/domain"
)

type click struct {
	title string
	shop  string
}

// PreferenceStore implements domain.PreferenceStore in process.
type PreferenceStore struct {
	mu       sync.RWMutex
	clicks   []click
	searches []string
}

// NewPreferenceStore creates an empty store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{}
}

// RecentClicks returns clicked titles and shops, most recent first.
func (s *PreferenceStore) RecentClicks(context.Context) ([]string, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.clicks))
	shops := make([]string, 0, len(s.clicks))
	for _, c := range s.clicks {
		if c.title != "" {
			titles = append(titles, c.title)
		}
		if c.shop != "" {
			shops = append(shops, c.shop)
		}
	}
	return titles, shops, nil
}

// RecordClick moves the click to the front, dropping an earlier identical one.
func (s *PreferenceStore) RecordClick(_ context.Context, title, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := click{title: title, shop: shop}
	kept := make([]click, 0, len(s.clicks)+1)
	kept = append(kept, c)
	for _, old := range s.clicks {
		if old != c {
			kept = append(kept, old)
		}
	}
	if len(kept) > domain.MaxRecentClicks {
		kept = kept[:domain.MaxRecentClicks]
	}
	s.clicks = kept
	return nil
}

// RecordSearch moves query to the front of the recent searches.
func (s *PreferenceStore) RecordSearch(_ context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches = pushFront(s.searches, query, domain.MaxRecentSearches)
	return nil
}

// RecentSearches returns recent queries, most recent first.
func (s *PreferenceStore) RecentSearches(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string{}, s.searches...), nil
}

func pushFront(list []string, v string, limit int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, v)
	for _, old := range list {
		if old != v {
			out = append(out, old)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
