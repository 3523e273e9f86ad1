package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createSearchCacheTable creates the search result cache table.
func createSearchCacheTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_search_cache",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS search_cache (
					cache_key VARCHAR(16) PRIMARY KEY,
					query VARCHAR(200) NOT NULL,
					result JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ NOT NULL
				);
			`).Error
			if err != nil {
				return err
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_search_cache_query ON search_cache(query);",
				"CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);",
			}

			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS search_cache;").Error
		},
	}
}
