package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
	"sweetshop/internal/services"
	"sweetshop/internal/validate"
)

type ItemHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/items
func (h *ItemHandler) List(c *fiber.Ctx) error {
	items, err := h.Catalog.List(c.Context())
	if err != nil {
		return respondError(c, "item.list.fail", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return c.JSON(items)
}

// GET /api/v1/items/:id
func (h *ItemHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
	}
	it, err := h.Catalog.Get(c.Context(), id)
	if err != nil {
		return respondError(c, "item.get.fail", err)
	}
	return c.JSON(it)
}

// POST /api/v1/items
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var it domain.Item
	if err := c.BodyParser(&it); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed payload"})
	}
	if name, ok := validate.Name(it.Name); ok {
		it.Name = name
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name must be 1-80 characters"})
	}
	if it.ID != "" {
		if _, ok := validate.ID(it.ID); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
		}
	}

	created, err := h.Catalog.Create(c.Context(), it)
	if err != nil {
		return respondError(c, "item.create.fail", err)
	}
	applog.Audit(c, "item.create", map[string]any{"item_id": created.ID, "qty": created.Quantity})
	return c.Status(fiber.StatusCreated).JSON(created)
}

// PUT /api/v1/items/:id
func (h *ItemHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
	}
	var patch domain.ItemPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed payload"})
	}

	it, err := h.Catalog.Update(c.Context(), id, patch)
	if err != nil {
		return respondError(c, "item.update.fail", err)
	}
	applog.Audit(c, "item.update", map[string]any{"item_id": it.ID, "qty": it.Quantity})
	return c.JSON(it)
}

// DELETE /api/v1/items/:id
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
	}
	if err := h.Catalog.Delete(c.Context(), id); err != nil {
		return respondError(c, "item.delete.fail", err)
	}
	applog.Audit(c, "item.delete", map[string]any{"item_id": id})
	return c.JSON(fiber.Map{"message": "deleted"})
}
