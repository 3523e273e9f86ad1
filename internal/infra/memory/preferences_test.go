package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booth-outfit-search/internal/domain"
)

// TestPreferenceStore_Clicks tests ordering, de-duplication and the cap.
func TestPreferenceStore_Clicks(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore()

	require.NoError(t, s.RecordClick(ctx, "Dress", "Atelier"))
	require.NoError(t, s.RecordClick(ctx, "Hoodie", ""))
	require.NoError(t, s.RecordClick(ctx, "Dress", "Atelier"))

	titles, shops, err := s.RecentClicks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dress", "Hoodie"}, titles)
	assert.Equal(t, []string{"Atelier"}, shops)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.RecordClick(ctx, fmt.Sprintf("item %d", i), "shop"))
	}

	titles, _, err = s.RecentClicks(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, domain.MaxRecentClicks)
	assert.Equal(t, "item 29", titles[0])
}

// TestPreferenceStore_Searches tests the recent search list.
func TestPreferenceStore_Searches(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore()

	searches, err := s.RecentSearches(ctx)
	require.NoError(t, err)
	assert.Empty(t, searches)

	for i := 0; i < 12; i++ {
		require.NoError(t, s.RecordSearch(ctx, fmt.Sprintf("q%d", i)))
	}
	require.NoError(t, s.RecordSearch(ctx, "q5"))

	searches, err = s.RecentSearches(ctx)
	require.NoError(t, err)
	require.Len(t, searches, domain.MaxRecentSearches)
	assert.Equal(t, []string{"q5", "q11", "q10"}, searches[:3])
	assert.NotContains(t, searches[1:], "q5")
}
