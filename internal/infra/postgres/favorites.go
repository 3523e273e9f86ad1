package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booth-outfit-search/internal/domain"
)

var favoriteOrderSQL = map[domain.FavoriteOrder]string{
	domain.FavoritesAddedDesc: "added_at DESC",
	domain.FavoritesAddedAsc:  "added_at ASC",
	domain.FavoritesNameAsc:   "name ASC",
	domain.FavoritesNameDesc:  "name DESC",
	domain.FavoritesPriceAsc:  "price_value ASC NULLS LAST",
	domain.FavoritesPriceDesc: "price_value DESC NULLS LAST",
}

// FavoriteStore implements domain.FavoriteStore on the favorites table.
type FavoriteStore struct {
	db        *gorm.DB
	profileID string
}

// NewFavoriteStore creates a store for profileID. Empty means DefaultProfile.
func NewFavoriteStore(db *gorm.DB, profileID string) *FavoriteStore {
	if profileID == "" {
		profileID = DefaultProfile
	}
	return &FavoriteStore{db: db, profileID: profileID}
}

// Add upserts fav.
func (s *FavoriteStore) Add(ctx context.Context, fav domain.Favorite) error {
	model := s.toModel(fav)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price_text", "price_value", "url", "thumbnail_url",
			"shop_name", "memo", "tags", "added_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("storing favorite %s: %w", fav.ItemID, err)
	}

	return nil
}

// Remove deletes the favorite for itemID.
func (s *FavoriteStore) Remove(ctx context.Context, itemID string) (bool, error) {
	res := s.scoped(ctx).Where("item_id = ?", itemID).Delete(&FavoriteModel{})
	if res.Error != nil {
		return false, fmt.Errorf("removing favorite %s: %w", itemID, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// Get returns the favorite, or nil.
func (s *FavoriteStore) Get(ctx context.Context, itemID string) (*domain.Favorite, error) {
	var model FavoriteModel
	err := s.scoped(ctx).Where("item_id = ?", itemID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading favorite %s: %w", itemID, err)
	}

	fav := model.toDomain()
	return &fav, nil
}

// List returns every favorite of the profile in order, ties by item id.
func (s *FavoriteStore) List(ctx context.Context, order domain.FavoriteOrder) ([]domain.Favorite, error) {
	var models []FavoriteModel
	err := s.scoped(ctx).
		Order(favoriteOrderSQL[domain.ParseFavoriteOrder(string(order))]).
		Order("item_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}

	out := make([]domain.Favorite, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

// Count returns the number of favorites of the profile.
func (s *FavoriteStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.scoped(ctx).Model(&FavoriteModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting favorites: %w", err)
	}
	return int(n), nil
}

// UpdateMemo replaces the memo of an existing favorite.
func (s *FavoriteStore) UpdateMemo(ctx context.Context, itemID, memo string) (bool, error) {
	res := s.scoped(ctx).
		Model(&FavoriteModel{}).
		Where("item_id = ?", itemID).
		Update("memo", memo)
	if res.Error != nil {
		return false, fmt.Errorf("updating favorite memo %s: %w", itemID, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// Clear deletes every favorite of the profile.
func (s *FavoriteStore) Clear(ctx context.Context) (int, error) {
	res := s.scoped(ctx).Delete(&FavoriteModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("clearing favorites: %w", res.Error)
	}

	return int(res.RowsAffected), nil
}

func (s *FavoriteStore) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("profile_id = ?", s.profileID)
}

func (s *FavoriteStore) toModel(fav domain.Favorite) *FavoriteModel {
	tags := pq.StringArray(fav.Tags)
	if tags == nil {
		tags = pq.StringArray{}
	}

	return &FavoriteModel{
		ProfileID:    s.profileID,
		ItemID:       fav.ItemID,
		Name:         fav.Name,
		PriceText:    fav.PriceText,
		PriceValue:   fav.PriceValue,
		URL:          fav.URL,
		ThumbnailURL: fav.ThumbnailURL,
		ShopName:     fav.ShopName,
		Memo:         fav.Memo,
		Tags:         tags,
		AddedAt:      fav.AddedAt.UTC(),
	}
}

func (m FavoriteModel) toDomain() domain.Favorite {
	return domain.Favorite{
		ItemID:       m.ItemID,
		Name:         m.Name,
		PriceText:    m.PriceText,
		PriceValue:   m.PriceValue,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		ShopName:     m.ShopName,
		Memo:         m.Memo,
		Tags:         append([]string{}, m.Tags...),
		AddedAt:      m.AddedAt.UTC(),
	}
}
