package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// ErrFavoriteID is returned when a favorite has neither an item id nor an
// item URL to derive one from.
var ErrFavoriteID = errors.New("favorite needs an item id or an item url")

// FavoriteService manages the user's saved listings.
type FavoriteService struct {
	store  domain.FavoriteStore
	logger *zap.Logger
	now    func() time.Time
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(store domain.FavoriteStore, logger *zap.Logger) *FavoriteService {
	return &FavoriteService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Add saves item with memo, replacing an earlier favorite of the same item.
// A missing id is taken from the item URL and a missing price value is
// parsed from the price label.
func (s *FavoriteService) Add(ctx context.Context, item domain.Item, memo string, tags []string) (domain.Favorite, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		id, ok := domain.ItemIDFromURL(item.URL)
		if !ok {
			return domain.Favorite{}, ErrFavoriteID
		}
		item.ID = id
	}
	if item.PriceValue == nil {
		item.PriceValue, _ = domain.ParsePrice(item.PriceText)
	}

	fav := domain.FavoriteFromItem(item, strings.TrimSpace(memo), s.now())
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			fav.Tags = append(fav.Tags, tag)
		}
	}

	if err := s.store.Add(ctx, fav); err != nil {
		return domain.Favorite{}, fmt.Errorf("adding favorite: %w", err)
	}

	s.logger.Debug("favorite added",
		zap.String("item_id", fav.ItemID),
		zap.String("name", fav.Name),
	)

	return fav, nil
}

// Remove deletes a favorite. Reports whether it existed.
func (s *FavoriteService) Remove(ctx context.Context, itemID string) (bool, error) {
	removed, err := s.store.Remove(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("removing favorite: %w", err)
	}
	if removed {
		s.logger.Debug("favorite removed", zap.String("item_id", itemID))
	}
	return removed, nil
}

// IsFavorite reports whether itemID is saved.
func (s *FavoriteService) IsFavorite(ctx context.Context, itemID string) (bool, error) {
	fav, err := s.Get(ctx, itemID)
	if err != nil {
		return false, err
	}
	return fav != nil, nil
}

// Get returns the favorite, or nil when itemID is not saved.
func (s *FavoriteService) Get(ctx context.Context, itemID string) (*domain.Favorite, error) {
	fav, err := s.store.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("reading favorite: %w", err)
	}
	return fav, nil
}

// List returns every favorite in order.
func (s *FavoriteService) List(ctx context.Context, order domain.FavoriteOrder) ([]domain.Favorite, error) {
	favs, err := s.store.List(ctx, domain.ParseFavoriteOrder(string(order)))
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return favs, nil
}

// Count returns the number of favorites.
func (s *FavoriteService) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting favorites: %w", err)
	}
	return n, nil
}

// UpdateMemo replaces a favorite's memo. Reports whether the favorite exists.
func (s *FavoriteService) UpdateMemo(ctx context.Context, itemID, memo string) (bool, error) {
	ok, err := s.store.UpdateMemo(ctx, itemID, strings.TrimSpace(memo))
	if err != nil {
		return false, fmt.Errorf("updating favorite memo: %w", err)
	}
	return ok, nil
}

// Clear deletes every favorite and returns how many were removed.
func (s *FavoriteService) Clear(ctx context.Context) (int, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing favorites: %w", err)
	}

	s.logger.Info("favorites cleared", zap.Int("removed", n))

	return n, nil
}
