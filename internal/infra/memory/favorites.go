package memory

import (
	"context"
	"sort"
	"sync"

	"booth-outfit-search/internal/domain"
)

// FavoriteStore implements domain.FavoriteStore in process.
type FavoriteStore struct {
	mu   sync.RWMutex
	favs map[string]domain.Favorite
}

// NewFavoriteStore creates an empty store.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{favs: make(map[string]domain.Favorite)}
}

// Add stores a copy of fav under its item id.
func (s *FavoriteStore) Add(_ context.Context, fav domain.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.favs[fav.ItemID] = copyFavorite(fav)
	return nil
}

// Remove deletes the favorite for itemID.
func (s *FavoriteStore) Remove(_ context.Context, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.favs[itemID]
	delete(s.favs, itemID)
	return ok, nil
}

// Get returns a copy of the favorite, or nil.
func (s *FavoriteStore) Get(_ context.Context, itemID string) (*domain.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fav, ok := s.favs[itemID]
	if !ok {
		return nil, nil
	}
	out := copyFavorite(fav)
	return &out, nil
}

// List returns copies of every favorite in order.
func (s *FavoriteStore) List(_ context.Context, order domain.FavoriteOrder) ([]domain.Favorite, error) {
	s.mu.RLock()
	out := make([]domain.Favorite, 0, len(s.favs))
	for _, fav := range s.favs {
		out = append(out, copyFavorite(fav))
	}
	s.mu.RUnlock()

	// map order is random; item id makes ties deterministic
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	domain.SortFavorites(out, order)
	return out, nil
}

// Count returns the number of favorites.
func (s *FavoriteStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.favs), nil
}

// UpdateMemo replaces the memo of an existing favorite.
func (s *FavoriteStore) UpdateMemo(_ context.Context, itemID, memo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fav, ok := s.favs[itemID]
	if !ok {
		return false, nil
	}
	fav.Memo = memo
	s.favs[itemID] = fav
	return true, nil
}

// Clear deletes every favorite.
func (s *FavoriteStore) Clear(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.favs)
	s.favs = make(map[string]domain.Favorite)
	return n, nil
}

func copyFavorite(fav domain.Favorite) domain.Favorite {
	if fav.PriceValue != nil {
		v := *fav.PriceValue
		fav.PriceValue = &v
	}
	fav.Tags = append([]string{}, fav.Tags...)
	return fav
}
