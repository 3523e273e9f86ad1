package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/validator"
)

// PageHandler renders the HTML search page.
type PageHandler struct {
	service   *service.SearchService
	validator *validator.Validator
	defaults  dto.Defaults
	logger    *zap.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(svc *service.SearchService, v *validator.Validator, defaults dto.Defaults, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		service:   svc,
		validator: v,
		defaults:  defaults,
		logger:    logger,
	}
}

// Render handles GET /
// Without a query only the form, popular avatars and recent searches are shown.
func (h *PageHandler) Render(c *fiber.Ctx) error {
	ctx := c.Context()

	recent, err := h.service.RecentSearches(ctx)
	if err != nil {
		h.logger.Warn("reading recent searches failed", zap.Error(err))
	}

	data := fiber.Map{
		"Title":          "BOOTH 의상 검색",
		"Avatars":        dto.FromAliasEntries(h.service.PopularAvatars()),
		"Categories":     h.service.Categories(),
		"RecentSearches": recent,
	}

	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil || req.Query == "" {
		return c.Render("pages/index", data, "layouts/base")
	}
	data["Request"] = req

	if err := h.validator.Validate(&req); err != nil {
		data["Error"] = err.Error()
		return c.Status(fiber.StatusBadRequest).Render("pages/index", data, "layouts/base")
	}

	result, err := h.service.SearchWithFallback(ctx, req.ToSearchParams(h.defaults), req.ToFallbackOptions(h.defaults))
	if err != nil {
		h.logger.Warn("page search failed", zap.String("query", req.Query), zap.Error(err))
		data["Error"] = pageError(err)
		return c.Status(fiber.StatusBadGateway).Render("pages/index", data, "layouts/base")
	}

	if err := h.service.RecordSearch(ctx, req.Query); err != nil {
		h.logger.Warn("recording search failed", zap.Error(err))
	}

	data["Result"] = dto.FromSearchResult(result)
	return c.Render("pages/index", data, "layouts/base")
}

func pageError(err error) string {
	if _, limited := domain.RetryAfter(err); limited {
		return "BOOTH 요청이 제한되었습니다. 잠시 후 다시 시도해 주세요."
	}
	return "검색에 실패했습니다: " + err.Error()
}
