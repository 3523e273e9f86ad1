package handler

import (
	"bytes"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/export"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/validator"
)

// FavoriteHandler handles the saved listings.
type FavoriteHandler struct {
	service   *service.FavoriteService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(svc *service.FavoriteService, v *validator.Validator, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	favs, err := h.service.List(c.Context(), domain.FavoriteOrder(c.Query("order")))
	if err != nil {
		return h.storeFailed(c, err)
	}

	return c.JSON(dto.FromFavorites(favs))
}

// Get handles GET /api/v1/favorites/:id
func (h *FavoriteHandler) Get(c *fiber.Ctx) error {
	fav, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.storeFailed(c, err)
	}
	if fav == nil {
		return favoriteNotFound(c)
	}

	return c.JSON(fav)
}

// Add handles POST /api/v1/favorites
func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	var req dto.FavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	fav, err := h.service.Add(c.Context(), req.ToItem(), req.Memo, req.Tags)
	if errors.Is(err, service.ErrFavoriteID) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_ITEM",
		})
	}
	if err != nil {
		return h.storeFailed(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fav)
}

// Remove handles DELETE /api/v1/favorites/:id
func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	removed, err := h.service.Remove(c.Context(), c.Params("id"))
	if err != nil {
		return h.storeFailed(c, err)
	}
	if !removed {
		return favoriteNotFound(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Clear handles DELETE /api/v1/favorites
func (h *FavoriteHandler) Clear(c *fiber.Ctx) error {
	n, err := h.service.Clear(c.Context())
	if err != nil {
		return h.storeFailed(c, err)
	}

	return c.JSON(dto.RemovedResponse{Removed: n})
}

// UpdateMemo handles PATCH /api/v1/favorites/:id/memo
func (h *FavoriteHandler) UpdateMemo(c *fiber.Ctx) error {
	var req dto.MemoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ok, err := h.service.UpdateMemo(c.Context(), c.Params("id"), req.Memo)
	if err != nil {
		return h.storeFailed(c, err)
	}
	if !ok {
		return favoriteNotFound(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Export handles GET /api/v1/favorites/export
func (h *FavoriteHandler) Export(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return invalidFormat(c, err)
	}

	favs, err := h.service.List(c.Context(), domain.FavoriteOrder(c.Query("order")))
	if err != nil {
		return h.storeFailed(c, err)
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteFavorites(&buf, format, favs, now); err != nil {
		return h.storeFailed(c, err)
	}

	return sendExport(c, export.Filename("favorites", format, now), format, buf.Bytes())
}

func (h *FavoriteHandler) storeFailed(c *fiber.Ctx, err error) error {
	h.logger.Error("favorites request failed",
		zap.Error(err),
		zap.String("path", c.Path()),
	)

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: "favorites request failed",
		Code:  "INTERNAL_ERROR",
	})
}

func favoriteNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: "favorite not found",
		Code:  "NOT_FOUND",
	})
}
