// Package handler provides HTTP handlers for the API.
package handler

import (
	"bytes"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/export"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/validator"
)

// SearchHandler handles search-related HTTP requests.
type SearchHandler struct {
	service   *service.SearchService
	validator *validator.Validator
	defaults  dto.Defaults
	logger    *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc *service.SearchService, v *validator.Validator, defaults dto.Defaults, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service:   svc,
		validator: v,
		defaults:  defaults,
		logger:    logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return invalidParams(c)
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.SearchWithFallback(
		c.Context(),
		req.ToSearchParams(h.defaults),
		req.ToFallbackOptions(h.defaults),
	)
	if err != nil {
		return searchFailed(c, h.logger, err)
	}

	if err := h.service.RecordSearch(c.Context(), req.Query); err != nil {
		h.logger.Warn("recording search failed", zap.Error(err))
	}

	return c.JSON(dto.FromSearchResult(result))
}

// SearchAll handles GET /api/v1/search/all
func (h *SearchHandler) SearchAll(c *fiber.Ctx) error {
	var req dto.SearchAllRequest
	if err := c.QueryParser(&req); err != nil {
		return invalidParams(c)
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.SearchAllPages(
		c.Context(),
		req.ToSearchParams(h.defaults),
		req.PageLimit(h.defaults),
		!req.NoCache,
	)
	if err != nil {
		return searchFailed(c, h.logger, err)
	}

	return c.JSON(dto.FromSearchResult(result))
}

// Export handles GET /api/v1/search/export
// The result is sent as a CSV or JSON attachment.
func (h *SearchHandler) Export(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return invalidParams(c)
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return invalidFormat(c, err)
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.SearchWithFallback(
		c.Context(),
		req.ToSearchParams(h.defaults),
		req.ToFallbackOptions(h.defaults),
	)
	if err != nil {
		return searchFailed(c, h.logger, err)
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteResult(&buf, format, result, now); err != nil {
		h.logger.Error("exporting search result failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "export failed",
			Code:  "INTERNAL_ERROR",
		})
	}

	h.logger.Debug("search result exported",
		zap.String("query", req.Query),
		zap.String("format", string(format)),
		zap.Int("items", len(result.Items)),
	)

	return sendExport(c, export.Filename(strings.TrimSpace(req.Query), format, now), format, buf.Bytes())
}

// RecordClick handles POST /api/v1/clicks
func (h *SearchHandler) RecordClick(c *fiber.Ctx) error {
	var req dto.ClickRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.service.RecordClick(c.Context(), req.Title, req.Shop); err != nil {
		h.logger.Error("recording click failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to record click",
			Code:  "INTERNAL_ERROR",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Avatars handles GET /api/v1/avatars
func (h *SearchHandler) Avatars(c *fiber.Ctx) error {
	return c.JSON(dto.FromAliasEntries(h.service.PopularAvatars()))
}

// Categories handles GET /api/v1/categories
func (h *SearchHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(h.service.Categories())
}

// sendExport sends body as a downloadable file.
func sendExport(c *fiber.Ctx, filename string, format export.Format, body []byte) error {
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(body)
}
