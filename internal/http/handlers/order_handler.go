package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
	"sweetshop/internal/repos"
	"sweetshop/internal/services"
	"sweetshop/internal/validate"
)

type OrderHandler struct {
	Purchase *services.PurchaseService
	Repo     *repos.OrderRepo
}

type purchaseRequest struct {
	UserID    string            `json:"user_id"`
	UserEmail string            `json:"user_email"`
	Items     []domain.LineItem `json:"items"`
}

// POST /api/v1/orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed payload", "reason": domain.ReasonInvalidRequest,
		})
	}

	email, ok := validate.Email(req.UserEmail)
	if !ok {
		applog.Warn(c, "validation.fail", map[string]any{"field": "user_email"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user_email", "reason": domain.ReasonInvalidRequest,
		})
	}
	userID, ok := validate.ID(req.UserID)
	if !ok {
		applog.Warn(c, "validation.fail", map[string]any{"field": "user_id"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user_id", "reason": domain.ReasonInvalidRequest,
		})
	}

	order, err := h.Purchase.Purchase(c.Context(), userID, email, req.Items)
	if err != nil {
		return respondError(c, "order.place.fail", err)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": order.ID,
		"user":     order.UserEmail,
		"total":    order.Total,
		"lines":    len(order.Lines),
	})
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}
	o, err := h.Repo.Get(c.Context(), id)
	if err != nil {
		return respondError(c, "order.get.fail", err)
	}
	return c.JSON(o)
}

// GET /api/v1/orders/my-history?email=
func (h *OrderHandler) History(c *fiber.Ctx) error {
	email, ok := validate.Email(c.Query("email"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enter a valid email"})
	}
	orders, err := h.Repo.ListByEmail(c.Context(), email)
	if err != nil {
		return respondError(c, "order.history.fail", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(orders)
}

// GET /api/v1/orders — admin view of recent orders
func (h *OrderHandler) ListAll(c *fiber.Ctx) error {
	orders, err := h.Repo.ListLatest(c.Context(), c.QueryInt("limit", 100))
	if err != nil {
		return respondError(c, "order.list.fail", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(orders)
}
