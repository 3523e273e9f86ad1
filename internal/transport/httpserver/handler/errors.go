package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
	applog "booth-outfit-search/internal/logger"
	"booth-outfit-search/internal/transport/httpserver/dto"
)

// searchFailed maps a search error to a response.
// Rate limiting becomes 429 with Retry-After, other fetch failures 502.
func searchFailed(c *fiber.Ctx, logger *zap.Logger, err error) error {
	fe, ok := domain.AsFetchError(err)
	if !ok {
		logger.Error("search failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "search failed",
			Code:  "INTERNAL_ERROR",
		})
	}

	logger.Warn("search failed upstream", applog.FetchErrorFields(err)...)

	if fe.Kind == domain.FetchErrorRateLimited {
		wait := fe.RetryAfter
		if wait <= 0 {
			wait = domain.DefaultRetryAfter
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Seconds())))

		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
			Error: "search failed: " + fe.Error(),
			Code:  "RATE_LIMITED",
		})
	}

	return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
		Error: "search failed: " + fe.Error(),
		Code:  "UPSTREAM_ERROR",
	})
}

func invalidParams(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: "invalid query parameters",
		Code:  "INVALID_PARAMS",
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:   "validation failed",
		Code:    "VALIDATION_ERROR",
		Details: err,
	})
}

func invalidFormat(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: err.Error(),
		Code:  "INVALID_FORMAT",
	})
}
