package postgres

import (
	"time"

	"github.com/lib/pq"
)

// CachedResultModel is the GORM model for the search_cache table.
type CachedResultModel struct {
	CacheKey  string    `gorm:"type:varchar(16);primaryKey"`
	Query     string    `gorm:"type:varchar(200);not null;index"`
	Result    string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for CachedResultModel.
func (CachedResultModel) TableName() string {
	return "search_cache"
}

// PreferencesModel is the GORM model for the user_preferences table.
// Clicked titles and shops are parallel arrays, most recent first.
type PreferencesModel struct {
	ProfileID      string         `gorm:"type:varchar(64);primaryKey"`
	ClickedTitles  pq.StringArray `gorm:"type:text[]"`
	ClickedShops   pq.StringArray `gorm:"type:text[]"`
	RecentSearches pq.StringArray `gorm:"type:text[]"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

// TableName returns the table name for PreferencesModel.
func (PreferencesModel) TableName() string {
	return "user_preferences"
}

// FavoriteModel is the GORM model for the favorites table.
type FavoriteModel struct {
	ProfileID    string         `gorm:"type:varchar(64);primaryKey"`
	ItemID       string         `gorm:"type:varchar(32);primaryKey"`
	Name         string         `gorm:"type:text;not null"`
	PriceText    string         `gorm:"type:text;not null;default:''"`
	PriceValue   *int           `gorm:"type:integer"`
	URL          string         `gorm:"column:url;type:text;not null;default:''"`
	ThumbnailURL string         `gorm:"column:thumbnail_url;type:text;not null;default:''"`
	ShopName     string         `gorm:"type:text;not null;default:''"`
	Memo         string         `gorm:"type:text;not null;default:''"`
	Tags         pq.StringArray `gorm:"type:text[]"`
	AddedAt      time.Time      `gorm:"not null"`
}

// TableName returns the table name for FavoriteModel.
func (FavoriteModel) TableName() string {
	return "favorites"
}
