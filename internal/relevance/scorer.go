package relevance

import (
	"sort"
	"strings"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/textnorm"
)

// History is the user's recent interaction history used for personal boosts.
type History struct {
	Titles []string
	Shops  []string
}

// Score computes the relevance of one listing to avatar.
//
// All matching is substring matching on normalized, lower-cased text:
//
//	avatar name in title          +ExactTitleMatch (records the avatar name)
//	each avatar token in title    +TokenMatch      (records the token)
//	each positive keyword         +PositiveKeyword
//	each negative keyword         +NegativeKeyword
//	each unrelated keyword        +UnrelatedKeyword (title or shop)
//	first recent title match      +RecentClickTitle
//	first recent shop match       +RecentClickShop
//
// Matched tokens are returned deduplicated in first-seen order.
func Score(title, shop, avatar string, cfg Config, history History) (float64, []string) {
	titleNorm := textnorm.Fold(title)
	shopNorm := textnorm.Fold(shop)
	avatarNorm := textnorm.Fold(avatar)
	w := cfg.Weights

	var (
		score   float64
		matched = newOrderedSet()
	)

	if avatarNorm != "" && strings.Contains(titleNorm, avatarNorm) {
		score += w.ExactTitleMatch
		matched.add(avatarNorm)
	}

	for _, token := range strings.Fields(avatarNorm) {
		if strings.Contains(titleNorm, token) {
			score += w.TokenMatch
			matched.add(token)
		}
	}

	score += float64(countContained(cfg.PositiveKeywords, titleNorm)) * w.PositiveKeyword
	score += float64(countContained(cfg.NegativeKeywords, titleNorm)) * w.NegativeKeyword

	for _, kw := range cfg.UnrelatedKeywords {
		k := textnorm.Fold(kw)
		if k != "" && (strings.Contains(titleNorm, k) || strings.Contains(shopNorm, k)) {
			score += w.UnrelatedKeyword
		}
	}

	if anyContained(history.Titles, titleNorm) {
		score += w.RecentClickTitle
	}
	if anyContained(history.Shops, shopNorm) {
		score += w.RecentClickShop
	}

	return score, matched.items
}

// Label maps a score to its bucket label.
func Label(score float64, b Buckets) string {
	switch {
	case score >= b.Strong:
		return domain.LabelStrong
	case score >= b.Medium:
		return domain.LabelMedium
	default:
		return domain.LabelWeak
	}
}

// Scorer applies a fixed Config to items.
// It is read-only after construction and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer for cfg.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Rank scores every item and returns new augmented items ordered by score,
// highest first. Equal scores keep their original order.
func (s *Scorer) Rank(items []domain.Item, avatar string, history History) []domain.Item {
	ranked := make([]domain.Item, len(items))
	for i, item := range items {
		score, tokens := Score(item.Name, item.ShopName, avatar, s.cfg, history)
		ranked[i] = item.WithRelevance(score, Label(score, s.cfg.Buckets), tokens)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].RelevanceScore > ranked[b].RelevanceScore
	})

	return ranked
}

func countContained(keywords []string, text string) int {
	n := 0
	for _, kw := range keywords {
		k := textnorm.Fold(kw)
		if k != "" && strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func anyContained(candidates []string, text string) bool {
	for _, c := range candidates {
		k := textnorm.Fold(c)
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
