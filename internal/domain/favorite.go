package domain

import (
	"sort"
	"strings"
	"time"
)

// Favorite is a listing the user saved, with a free-form memo.
type Favorite struct {
	ItemID       string    `json:"item_id"`
	Name         string    `json:"name"`
	PriceText    string    `json:"price_text"`
	PriceValue   *int      `json:"price_value"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ShopName     string    `json:"shop_name"`
	Memo         string    `json:"memo"`
	Tags         []string  `json:"tags"`
	AddedAt      time.Time `json:"added_at"`
}

// FavoriteFromItem snapshots item as a favorite added at now.
func FavoriteFromItem(item Item, memo string, now time.Time) Favorite {
	var price *int
	if item.PriceValue != nil {
		v := *item.PriceValue
		price = &v
	}

	return Favorite{
		ItemID:       item.ID,
		Name:         item.Name,
		PriceText:    item.PriceText,
		PriceValue:   price,
		URL:          item.URL,
		ThumbnailURL: item.ThumbnailURL,
		ShopName:     item.ShopName,
		Memo:         memo,
		Tags:         []string{},
		AddedAt:      now,
	}
}

// FavoriteOrder is a listing order for favorites.
type FavoriteOrder string

const (
	FavoritesAddedDesc FavoriteOrder = "added_desc"
	FavoritesAddedAsc  FavoriteOrder = "added_asc"
	FavoritesNameAsc   FavoriteOrder = "name_asc"
	FavoritesNameDesc  FavoriteOrder = "name_desc"
	FavoritesPriceAsc  FavoriteOrder = "price_asc"
	FavoritesPriceDesc FavoriteOrder = "price_desc"
)

// ParseFavoriteOrder returns the order named s, or FavoritesAddedDesc for
// anything unrecognised.
func ParseFavoriteOrder(s string) FavoriteOrder {
	switch o := FavoriteOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case FavoritesAddedAsc, FavoritesNameAsc, FavoritesNameDesc, FavoritesPriceAsc, FavoritesPriceDesc:
		return o
	default:
		return FavoritesAddedDesc
	}
}

// SortFavorites orders favs in place. Favorites without a price go last
// in both price orders; ties keep their current order.
func SortFavorites(favs []Favorite, order FavoriteOrder) {
	var less func(a, b Favorite) bool

	switch ParseFavoriteOrder(string(order)) {
	case FavoritesAddedAsc:
		less = func(a, b Favorite) bool { return a.AddedAt.Before(b.AddedAt) }
	case FavoritesNameAsc:
		less = func(a, b Favorite) bool { return a.Name < b.Name }
	case FavoritesNameDesc:
		less = func(a, b Favorite) bool { return a.Name > b.Name }
	case FavoritesPriceAsc:
		less = priceLess(true)
	case FavoritesPriceDesc:
		less = priceLess(false)
	default:
		less = func(a, b Favorite) bool { return a.AddedAt.After(b.AddedAt) }
	}

	sort.SliceStable(favs, func(i, j int) bool { return less(favs[i], favs[j]) })
}

func priceLess(ascending bool) func(a, b Favorite) bool {
	return func(a, b Favorite) bool {
		switch {
		case a.PriceValue == nil:
			return false
		case b.PriceValue == nil:
			return true
		case ascending:
			return *a.PriceValue < *b.PriceValue
		default:
			return *a.PriceValue > *b.PriceValue
		}
	}
}
