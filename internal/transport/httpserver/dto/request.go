// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import (
	"strings"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/validator"
)

// Defaults holds the configured values applied to omitted request fields.
type Defaults struct {
	PerPage     int
	MinResults  int
	MaxAttempts int
	AllowMulti  bool
	VerifyMode  bool
	VerifyTopN  int
	MaxPages    int
}

// SearchRequest represents query parameters for GET /api/v1/search.
// Pointer fields distinguish "not given" from an explicit zero or false.
type SearchRequest struct {
	Query    string `query:"q" validate:"required,notblank,max=200"`
	Category string `query:"category" validate:"omitempty,oneof=all 3d_clothing 3d_character 3d_accessory 3d_model"`
	Sort     string `query:"sort" validate:"omitempty,oneof=relevance new wish_count price_asc price_desc"`
	MinPrice *int   `query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *int   `query:"max_price" validate:"omitempty,gte=0"`
	FreeOnly bool   `query:"free_only"`
	Page     int    `query:"page" validate:"omitempty,min=1,max=1000"`
	PerPage  int    `query:"per_page" validate:"omitempty,min=1,max=100"`

	// Query resolution
	Normalize   *bool `query:"normalize"`
	Alias       *bool `query:"alias"`
	Fallback    *bool `query:"fallback"`
	Multi       *bool `query:"multi"`
	MinResults  *int  `query:"min_results" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts *int  `query:"max_attempts" validate:"omitempty,gte=-1,lte=10"`

	// Detail verification
	Verify     *bool `query:"verify"`
	VerifyTopN *int  `query:"verify_top_n" validate:"omitempty,gte=0,lte=50"`

	NoCache bool `query:"no_cache"`
}

// CheckFields reports a price window whose lower bound exceeds its upper bound.
func (r *SearchRequest) CheckFields() validator.ValidationErrors {
	if r.MinPrice != nil && r.MaxPrice != nil && *r.MinPrice > *r.MaxPrice {
		return validator.ValidationErrors{{
			Field:   "min_price",
			Tag:     "ltefield",
			Message: "min_price must not exceed max_price",
		}}
	}
	return nil
}

// ToSearchParams converts the request to domain.SearchParams.
func (r *SearchRequest) ToSearchParams(d Defaults) domain.SearchParams {
	query := strings.TrimSpace(r.Query)

	params := domain.SearchParams{
		AvatarName:       query,
		RawQuery:         query,
		Category:         domain.Category(r.Category),
		Sort:             domain.SortOrder(r.Sort),
		Page:             r.Page,
		PerPage:          r.PerPage,
		NormalizeEnabled: boolOr(r.Normalize, true),
		AliasEnabled:     boolOr(r.Alias, true),
		FallbackEnabled:  boolOr(r.Fallback, true),
		AllowMulti:       boolOr(r.Multi, d.AllowMulti),
		MinResults:       intOr(r.MinResults, d.MinResults),
		VerifyMode:       boolOr(r.Verify, d.VerifyMode),
		VerifyTopN:       intOr(r.VerifyTopN, d.VerifyTopN),
	}
	if params.PerPage == 0 {
		params.PerPage = d.PerPage
	}

	if r.MinPrice != nil || r.MaxPrice != nil || r.FreeOnly {
		params.PriceRange = &domain.PriceRange{
			MinPrice: r.MinPrice,
			MaxPrice: r.MaxPrice,
			FreeOnly: r.FreeOnly,
		}
	}

	params.Validate()
	return params
}

// ToFallbackOptions converts the request to service.FallbackOptions.
func (r *SearchRequest) ToFallbackOptions(d Defaults) service.FallbackOptions {
	opts := service.DefaultFallbackOptions()
	opts.UseCache = !r.NoCache
	opts.MinResults = intOr(r.MinResults, d.MinResults)
	opts.MaxAttempts = intOr(r.MaxAttempts, d.MaxAttempts)
	return opts
}

// SearchAllRequest represents query parameters for GET /api/v1/search/all.
type SearchAllRequest struct {
	SearchRequest
	MaxPages int `query:"max_pages" validate:"omitempty,min=1,max=20"`
}

// PageLimit returns the requested page limit or the configured default.
func (r *SearchAllRequest) PageLimit(d Defaults) int {
	if r.MaxPages > 0 {
		return r.MaxPages
	}
	return d.MaxPages
}

// InvalidateRequest represents the body for POST /api/v1/cache/invalidate.
// With AllPages set every cached page for the query is dropped.
type InvalidateRequest struct {
	Query    string `json:"q" validate:"required,notblank,max=200"`
	Category string `json:"category" validate:"omitempty,oneof=all 3d_clothing 3d_character 3d_accessory 3d_model"`
	Sort     string `json:"sort" validate:"omitempty,oneof=relevance new wish_count price_asc price_desc"`
	MinPrice *int   `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *int   `json:"max_price" validate:"omitempty,gte=0"`
	FreeOnly bool   `json:"free_only"`
	Page     int    `json:"page" validate:"omitempty,min=1"`
	AllPages bool   `json:"all_pages"`
}

// ToSearchParams converts the request to the params of the cached page.
func (r *InvalidateRequest) ToSearchParams() domain.SearchParams {
	params := domain.NewSearchParams(r.Query)
	params.Category = domain.Category(r.Category)
	params.Sort = domain.SortOrder(r.Sort)
	params.Page = r.Page
	if r.MinPrice != nil || r.MaxPrice != nil || r.FreeOnly {
		params.PriceRange = &domain.PriceRange{MinPrice: r.MinPrice, MaxPrice: r.MaxPrice, FreeOnly: r.FreeOnly}
	}
	params.Validate()
	return params
}

// ClickRequest represents the body for POST /api/v1/clicks.
type ClickRequest struct {
	Title string `json:"title" validate:"required,notblank,max=500"`
	Shop  string `json:"shop" validate:"max=200"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
