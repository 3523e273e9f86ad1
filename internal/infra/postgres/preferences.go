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

// DefaultProfile is the profile used by single-user deployments.
const DefaultProfile = "default"

// PreferenceStore implements domain.PreferenceStore on the user_preferences table.
type PreferenceStore struct {
	db        *gorm.DB
	profileID string
}

// NewPreferenceStore creates a store for profileID. Empty means DefaultProfile.
func NewPreferenceStore(db *gorm.DB, profileID string) *PreferenceStore {
	if profileID == "" {
		profileID = DefaultProfile
	}
	return &PreferenceStore{db: db, profileID: profileID}
}

// RecentClicks returns clicked titles and shops, most recent first.
func (s *PreferenceStore) RecentClicks(ctx context.Context) ([]string, []string, error) {
	model, err := s.load(s.db.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}

	titles := make([]string, 0, len(model.ClickedTitles))
	for _, t := range model.ClickedTitles {
		if t != "" {
			titles = append(titles, t)
		}
	}
	shops := make([]string, 0, len(model.ClickedShops))
	for _, sh := range model.ClickedShops {
		if sh != "" {
			shops = append(shops, sh)
		}
	}

	return titles, shops, nil
}

// RecordClick moves the click to the front, dropping an earlier identical one.
func (s *PreferenceStore) RecordClick(ctx context.Context, title, shop string) error {
	return s.update(ctx, func(m *PreferencesModel) {
		titles := []string{title}
		shops := []string{shop}
		for i := range m.ClickedTitles {
			oldShop := ""
			if i < len(m.ClickedShops) {
				oldShop = m.ClickedShops[i]
			}
			if m.ClickedTitles[i] == title && oldShop == shop {
				continue
			}
			titles = append(titles, m.ClickedTitles[i])
			shops = append(shops, oldShop)
		}
		if len(titles) > domain.MaxRecentClicks {
			titles = titles[:domain.MaxRecentClicks]
			shops = shops[:domain.MaxRecentClicks]
		}
		m.ClickedTitles = titles
		m.ClickedShops = shops
	})
}

// RecordSearch moves query to the front of the recent searches.
func (s *PreferenceStore) RecordSearch(ctx context.Context, query string) error {
	return s.update(ctx, func(m *PreferencesModel) {
		searches := []string{query}
		for _, q := range m.RecentSearches {
			if q != query {
				searches = append(searches, q)
			}
		}
		if len(searches) > domain.MaxRecentSearches {
			searches = searches[:domain.MaxRecentSearches]
		}
		m.RecentSearches = searches
	})
}

// RecentSearches returns recent queries, most recent first.
func (s *PreferenceStore) RecentSearches(ctx context.Context) ([]string, error) {
	model, err := s.load(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	return append([]string{}, model.RecentSearches...), nil
}

func (s *PreferenceStore) load(tx *gorm.DB) (*PreferencesModel, error) {
	var model PreferencesModel
	err := tx.Where("profile_id = ?", s.profileID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &PreferencesModel{
			ProfileID:      s.profileID,
			ClickedTitles:  pq.StringArray{},
			ClickedShops:   pq.StringArray{},
			RecentSearches: pq.StringArray{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}

	return &model, nil
}

// update applies mutate to the profile row under a row lock.
func (s *PreferenceStore) update(ctx context.Context, mutate func(*PreferencesModel)) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}))
		if err != nil {
			return err
		}

		mutate(model)

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"clicked_titles", "clicked_shops", "recent_searches", "updated_at"}),
		}).Create(model).Error
	})
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}

	return nil
}
