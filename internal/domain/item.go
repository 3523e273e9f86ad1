// Package domain contains the marketplace entities, search value objects and
// the ports the search core depends on.
// This package has no external dependencies (only stdlib).
package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PriceType classifies a listing's price.
type PriceType string

const (
	PriceTypeFree    PriceType = "free"
	PriceTypePaid    PriceType = "paid"
	PriceTypeUnknown PriceType = "unknown"
)

// Relevance labels produced by the scorer.
const (
	LabelStrong = "strong"
	LabelMedium = "medium"
	LabelWeak   = "weak"
)

// Item is a single marketplace listing.
// Items are values: augmentation goes through the With* constructors, which
// return a copy and leave the receiver untouched.
type Item struct {
	// Listing fields, as produced by the parser
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	PriceText    string     `json:"price_text"`
	PriceValue   *int       `json:"price_value"`
	PriceType    PriceType  `json:"price_type"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url"`
	ShopName     string     `json:"shop_name,omitempty"`
	ShopURL      string     `json:"shop_url,omitempty"`
	Likes        int        `json:"likes"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	Tags         []string   `json:"tags,omitempty"`

	// Augmentation added by the search core
	RelevanceScore        float64  `json:"relevance_score"`
	RelevanceLabel        string   `json:"relevance_label,omitempty"`
	MatchedTokens         []string `json:"matched_tokens,omitempty"`
	VerifiedInDescription bool     `json:"verified_in_description"`
}

// IsFree reports whether the item costs nothing.
func (i Item) IsFree() bool {
	return i.PriceType == PriceTypeFree || (i.PriceValue != nil && *i.PriceValue == 0)
}

// MatchesPriceRange reports whether the item's price lies within [min, max].
// Items with an unknown price always match.
func (i Item) MatchesPriceRange(minPrice, maxPrice *int) bool {
	if i.PriceValue == nil {
		return true
	}
	if minPrice != nil && *i.PriceValue < *minPrice {
		return false
	}
	if maxPrice != nil && *i.PriceValue > *maxPrice {
		return false
	}
	return true
}

// WithRelevance returns a copy of the item carrying the given score, label and matched tokens.
func (i Item) WithRelevance(score float64, label string, tokens []string) Item {
	out := i.clone()
	out.RelevanceScore = score
	out.RelevanceLabel = label
	out.MatchedTokens = append([]string(nil), tokens...)
	return out
}

// WithVerified returns a copy of the item with the description verification flag set.
func (i Item) WithVerified(verified bool) Item {
	out := i.clone()
	out.VerifiedInDescription = verified
	return out
}

// clone copies the item including its slice and pointer fields.
func (i Item) clone() Item {
	out := i
	out.Tags = append([]string(nil), i.Tags...)
	out.MatchedTokens = append([]string(nil), i.MatchedTokens...)
	if i.PriceValue != nil {
		v := *i.PriceValue
		out.PriceValue = &v
	}
	if i.CreatedAt != nil {
		t := *i.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

var (
	priceDigitsPattern = regexp.MustCompile(`[\d,]+`)
	zeroYenPattern     = regexp.MustCompile(`(?:^|[^\d,])0円`)
	itemIDPattern      = regexp.MustCompile(`/items/(\d+)`)
)

// ParsePrice parses a raw price label such as "¥1,500", "無料" or "Free".
//
// Rules:
//   - "無料", "free" (any case) or a standalone "0円": free, value 0
//   - first digit group, commas stripped: paid, or free when it is zero
//   - otherwise: unknown, no value
func ParsePrice(text string) (*int, PriceType) {
	if strings.TrimSpace(text) == "" {
		return nil, PriceTypeUnknown
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(text, "無料") || strings.Contains(lower, "free") || zeroYenPattern.MatchString(text) {
		zero := 0
		return &zero, PriceTypeFree
	}

	for _, group := range priceDigitsPattern.FindAllString(text, -1) {
		digits := strings.ReplaceAll(group, ",", "")
		if digits == "" {
			continue
		}
		value, err := strconv.Atoi(digits)
		if err != nil {
			return nil, PriceTypeUnknown
		}
		if value == 0 {
			return &value, PriceTypeFree
		}
		return &value, PriceTypePaid
	}

	return nil, PriceTypeUnknown
}

// ItemIDFromURL extracts the numeric listing id from an item URL.
func ItemIDFromURL(url string) (string, bool) {
	m := itemIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
