package dto

import (
	"strings"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/validator"
)

// FavoriteRequest represents the body for POST /api/v1/favorites.
// Either ItemID or URL must identify the listing.
type FavoriteRequest struct {
	ItemID       string   `json:"item_id" validate:"omitempty,numeric,max=20"`
	Name         string   `json:"name" validate:"required,notblank,max=500"`
	PriceText    string   `json:"price_text" validate:"max=50"`
	PriceValue   *int     `json:"price_value" validate:"omitempty,gte=0"`
	URL          string   `json:"url" validate:"omitempty,url,max=500"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	ShopName     string   `json:"shop_name" validate:"max=200"`
	Memo         string   `json:"memo" validate:"max=1000"`
	Tags         []string `json:"tags" validate:"max=20,dive,max=50"`
}

// CheckFields reports a favorite with nothing to identify the listing.
func (r *FavoriteRequest) CheckFields() validator.ValidationErrors {
	if strings.TrimSpace(r.ItemID) == "" && strings.TrimSpace(r.URL) == "" {
		return validator.ValidationErrors{{
			Field:   "item_id",
			Tag:     "required_without",
			Message: "item_id or url is required",
		}}
	}
	return nil
}

// ToItem converts the request to the listing being saved.
func (r *FavoriteRequest) ToItem() domain.Item {
	return domain.Item{
		ID:           r.ItemID,
		Name:         strings.TrimSpace(r.Name),
		PriceText:    r.PriceText,
		PriceValue:   r.PriceValue,
		URL:          r.URL,
		ThumbnailURL: r.ThumbnailURL,
		ShopName:     r.ShopName,
	}
}

// MemoRequest represents the body for PATCH /api/v1/favorites/:id/memo.
type MemoRequest struct {
	Memo string `json:"memo" validate:"max=1000"`
}

// FavoriteListResponse represents the saved listings.
type FavoriteListResponse struct {
	Favorites []domain.Favorite `json:"favorites"`
	Count     int               `json:"count"`
}

// FromFavorites converts favorites to FavoriteListResponse.
func FromFavorites(favs []domain.Favorite) FavoriteListResponse {
	if favs == nil {
		favs = []domain.Favorite{}
	}
	return FavoriteListResponse{Favorites: favs, Count: len(favs)}
}
