package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createUserPreferencesTable stores click and search history per profile.
func createUserPreferencesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_create_user_preferences",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS user_preferences (
					profile_id VARCHAR(64) PRIMARY KEY,
					clicked_titles TEXT[] NOT NULL DEFAULT '{}',
					clicked_shops TEXT[] NOT NULL DEFAULT '{}',
					recent_searches TEXT[] NOT NULL DEFAULT '{}',
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS user_preferences;").Error
		},
	}
}
