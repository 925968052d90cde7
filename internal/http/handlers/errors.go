package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
)

// respondError maps the domain error taxonomy onto HTTP statuses with a
// structured JSON body. Purchase failures keep the offending item visible.
func respondError(c *fiber.Ctx, action string, err error) error {
	var pe *domain.PurchaseError
	if errors.As(err, &pe) {
		applog.Warn(c, action, map[string]any{"item_id": pe.ItemID, "reason": pe.Reason})
		return c.Status(statusForReason(pe.Reason)).JSON(fiber.Map{
			"error":   pe.Error(),
			"item_id": pe.ItemID,
			"reason":  pe.Reason,
		})
	}

	var ins *domain.InsufficientStockError
	switch {
	case errors.As(err, &ins):
		applog.Warn(c, action, map[string]any{"item_id": ins.ItemID})
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   ins.Error(),
			"item_id": ins.ItemID,
			"reason":  domain.ReasonInsufficientStock,
		})
	case errors.Is(err, domain.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  err.Error(),
			"reason": "already_exists",
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  err.Error(),
			"reason": domain.ReasonNotFound,
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  err.Error(),
			"reason": domain.ReasonInvalidRequest,
		})
	case errors.Is(err, domain.ErrStoreUnavailable):
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":  "store unavailable, please retry",
			"reason": domain.ReasonStoreUnavailable,
		})
	default:
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong, please try again",
		})
	}
}

func statusForReason(reason string) int {
	switch reason {
	case domain.ReasonNotFound:
		return fiber.StatusNotFound
	case domain.ReasonInsufficientStock:
		return fiber.StatusConflict
	case domain.ReasonInvalidRequest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusServiceUnavailable
	}
}
