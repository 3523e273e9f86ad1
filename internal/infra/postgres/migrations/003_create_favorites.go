package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createFavoritesTable stores saved listings per profile.
func createFavoritesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "003_create_favorites",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS favorites (
					profile_id VARCHAR(64) NOT NULL,
					item_id VARCHAR(32) NOT NULL,
					name TEXT NOT NULL,
					price_text TEXT NOT NULL DEFAULT '',
					price_value INTEGER,
					url TEXT NOT NULL DEFAULT '',
					thumbnail_url TEXT NOT NULL DEFAULT '',
					shop_name TEXT NOT NULL DEFAULT '',
					memo TEXT NOT NULL DEFAULT '',
					tags TEXT[] NOT NULL DEFAULT '{}',
					added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (profile_id, item_id)
				);

				CREATE INDEX IF NOT EXISTS idx_favorites_added_at ON favorites (profile_id, added_at DESC);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS favorites;").Error
		},
	}
}
