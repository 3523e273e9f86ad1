package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SortOrder represents the marketplace result ordering.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance" // scored and re-ranked locally
	SortNewest    SortOrder = "new"
	SortPopular   SortOrder = "wish_count"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// BoothParam returns the marketplace "sort" query value, empty for relevance.
func (s SortOrder) BoothParam() string {
	switch s {
	case SortNewest:
		return "new"
	case SortPopular:
		return "wish_count"
	case SortPriceAsc, SortPriceDesc:
		return "price"
	default:
		return ""
	}
}

// IsPriceSort reports whether the order is applied client-side by price.
func (s SortOrder) IsPriceSort() bool {
	return s == SortPriceAsc || s == SortPriceDesc
}

// Category is a marketplace category slug.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryClothing  Category = "3d_clothing"
	CategoryCharacter Category = "3d_character"
	CategoryAccessory Category = "3d_accessory"
	CategoryModel     Category = "3d_model"
)

// CategoryInfo describes one selectable category.
type CategoryInfo struct {
	Slug  Category `json:"slug"`
	Label string   `json:"label"`
	ID    string   `json:"id"`
}

var categories = []CategoryInfo{
	{Slug: CategoryAll, Label: "전체", ID: ""},
	{Slug: CategoryClothing, Label: "3D 의상", ID: "208"},
	{Slug: CategoryCharacter, Label: "3D 캐릭터", ID: "217"},
	{Slug: CategoryAccessory, Label: "3D 액세서리", ID: "209"},
	{Slug: CategoryModel, Label: "3D 모델", ID: "207"},
}

// Categories returns the selectable categories in display order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

// ID returns the marketplace category id, empty for "all" or unknown slugs.
func (c Category) ID() string {
	for _, info := range categories {
		if info.Slug == c {
			return info.ID
		}
	}
	return ""
}

// PriceRange is a client-side price filter.
type PriceRange struct {
	MinPrice *int `json:"min_price,omitempty"`
	MaxPrice *int `json:"max_price,omitempty"`
	FreeOnly bool `json:"free_only"`
}

// IsEmpty reports whether the range filters nothing.
func (r *PriceRange) IsEmpty() bool {
	return r == nil || (r.MinPrice == nil && r.MaxPrice == nil && !r.FreeOnly)
}

// Default search parameter values.
const (
	DefaultPage        = 1
	DefaultPerPage     = 24
	DefaultMinResults  = 3
	DefaultMaxAttempts = 3
	KeywordSuffix      = "対応"
)

// SearchParams holds one search request.
// It is passed by value; derivations such as WithPage return a modified copy.
type SearchParams struct {
	AvatarName string
	Category   Category
	Sort       SortOrder
	PriceRange *PriceRange
	Page       int
	PerPage    int

	// Resolution settings
	RawQuery         string
	NormalizeEnabled bool
	AliasEnabled     bool
	FallbackEnabled  bool
	AllowMulti       bool
	MinResults       int

	// Filled after resolution
	ResolvedQuery string
	UsedStrategy  string

	// Detail verification
	VerifyMode bool
	VerifyTopN int
}

// NewSearchParams returns params for avatar with resolution enabled and defaults applied.
func NewSearchParams(avatar string) SearchParams {
	p := SearchParams{
		AvatarName:       avatar,
		RawQuery:         avatar,
		NormalizeEnabled: true,
		AliasEnabled:     true,
		FallbackEnabled:  true,
		MinResults:       DefaultMinResults,
	}
	p.Validate()
	return p
}

// Validate ensures params are within acceptable bounds. This is bound correction, not validation.
func (p *SearchParams) Validate() {
	p.AvatarName = strings.TrimSpace(p.AvatarName)
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.Sort == "" {
		p.Sort = SortRelevance
	}
	if p.Category == "" {
		p.Category = CategoryAll
	}
	if p.VerifyTopN < 0 {
		p.VerifyTopN = 0
	}
}

// WithPage returns a copy of the params for another page.
func (p SearchParams) WithPage(page int) SearchParams {
	p.Page = page
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	return p
}

// WithQuery returns a copy of the params searching for query instead of the avatar name.
func (p SearchParams) WithQuery(query string) SearchParams {
	p.AvatarName = strings.TrimSpace(query)
	return p
}

// SearchKeyword returns the keyword sent to the marketplace.
func (p SearchParams) SearchKeyword() string {
	return p.AvatarName + " " + KeywordSuffix
}

// Offset returns the zero-based index of the first item on the page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// CacheKey returns a stable 16-hex-character fingerprint of the request.
//
// Only avatar name, category, sort, price range and page participate, so the
// same underlying search shares an entry however its query was resolved:
//
//	sha256("avatar:category:sort:min:max:free_only:page")[:16]
//
// Unset price bounds render as "None" and the flag as "True"/"False"; with no
// price range the price segment is empty.
func (p SearchParams) CacheKey() string {
	price := ""
	if p.PriceRange != nil {
		price = optionalInt(p.PriceRange.MinPrice) + ":" +
			optionalInt(p.PriceRange.MaxPrice) + ":" +
			titleBool(p.PriceRange.FreeOnly)
	}

	raw := strings.Join([]string{
		p.AvatarName,
		string(p.Category),
		string(p.Sort),
		price,
		strconv.Itoa(p.Page),
	}, ":")

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

func optionalInt(v *int) string {
	if v == nil {
		return "None"
	}
	return strconv.Itoa(*v)
}

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
