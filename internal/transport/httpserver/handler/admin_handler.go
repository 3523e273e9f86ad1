package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/validator"
)

const recentQueriesLimit = 10

// AdminHandler handles cache administration and statistics.
type AdminHandler struct {
	search    *service.SearchService
	prefetch  *service.PrefetchService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
// prefetch may be nil, in which case manual prefetch is unavailable.
func NewAdminHandler(
	search *service.SearchService,
	prefetch *service.PrefetchService,
	v *validator.Validator,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		search:    search,
		prefetch:  prefetch,
		validator: v,
		logger:    logger,
	}
}

// ClearCache handles DELETE /api/v1/cache
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.search.ClearCache(c.Context()); err != nil {
		h.logger.Error("clearing cache failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to clear cache",
			Code:  "CACHE_ERROR",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Invalidate handles POST /api/v1/cache/invalidate
func (h *AdminHandler) Invalidate(c *fiber.Ctx) error {
	var req dto.InvalidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	var (
		removed int
		err     error
	)
	if req.AllPages {
		removed, err = h.search.InvalidateByQuery(c.Context(), req.Query)
	} else {
		var ok bool
		ok, err = h.search.InvalidateCache(c.Context(), req.ToSearchParams())
		if ok {
			removed = 1
		}
	}
	if err != nil {
		h.logger.Error("invalidating cache failed", zap.String("query", req.Query), zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to invalidate cache",
			Code:  "CACHE_ERROR",
		})
	}

	return c.JSON(dto.RemovedResponse{Removed: removed})
}

// Cleanup handles POST /api/v1/cache/cleanup
func (h *AdminHandler) Cleanup(c *fiber.Ctx) error {
	removed, err := h.search.CleanupCache(c.Context())
	if err != nil {
		h.logger.Error("cache cleanup failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to clean up cache",
			Code:  "CACHE_ERROR",
		})
	}

	return c.JSON(dto.RemovedResponse{Removed: removed})
}

// Stats handles GET /api/v1/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	ctx := c.Context()

	queries, err := h.search.RecentQueries(ctx, recentQueriesLimit)
	if err != nil {
		h.logger.Warn("reading recent queries failed", zap.Error(err))
	}

	searches, err := h.search.RecentSearches(ctx)
	if err != nil {
		h.logger.Warn("reading recent searches failed", zap.Error(err))
	}

	return c.JSON(dto.FromStats(h.search.Stats(ctx), queries, searches))
}

// Prefetch handles POST /api/v1/admin/prefetch
func (h *AdminHandler) Prefetch(c *fiber.Ctx) error {
	if h.prefetch == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: "prefetch is not configured",
			Code:  "PREFETCH_DISABLED",
		})
	}

	results := h.prefetch.PrefetchAll(c.Context())

	return c.JSON(dto.FromPrefetchResults(results))
}
