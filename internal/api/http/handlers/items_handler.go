package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/api/dto"
	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/service"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// ItemsHandler serves the generic /api/items endpoints.
type ItemsHandler struct {
	items *service.ItemService
}

// NewItemsHandler constructs handler.
func NewItemsHandler(itemService *service.ItemService) *ItemsHandler {
	return &ItemsHandler{items: itemService}
}

// List GET /api/items.
func (h *ItemsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	filter, err := parseItemListQuery(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListItems(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return itemsData(c, items)
}

// Get GET /api/items/:id.
func (h *ItemsHandler) Get(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	item, err := h.items.GetItem(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return itemData(c, fiber.StatusOK, item)
}

// Create POST /api/items.
func (h *ItemsHandler) Create(c *fiber.Ctx) error {
	return createItem(c, h.items)
}

// Update PUT /api/items/:id.
func (h *ItemsHandler) Update(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.items.UpdateItem(c.UserContext(), actor, c.Params("id"), service.ItemPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return itemData(c, fiber.StatusOK, item)
}

// Approve PUT /api/items/:id/approve.
func (h *ItemsHandler) Approve(c *fiber.Ctx) error {
	return transition(c, h.items.Approve)
}

// Reject PUT /api/items/:id/reject.
func (h *ItemsHandler) Reject(c *fiber.Ctx) error {
	return transition(c, h.items.Reject)
}

// Delete DELETE /api/items/:id.
func (h *ItemsHandler) Delete(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.items.DeleteItem(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "item deleted"})
}

type transitionFunc func(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error)

func transition(c *fiber.Ctx, apply transitionFunc) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	item, err := apply(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return itemData(c, fiber.StatusOK, item)
}

func createItem(c *fiber.Ctx, items *service.ItemService) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := items.CreateItem(c.UserContext(), actor, service.ItemCreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		AssignedTo:      req.AssignedTo,
		MocID:           req.MocID,
		ReasonForChange: req.ReasonForChange,
		Pros:            req.Pros,
		Cons:            req.Cons,
		RiskFactor:      req.RiskFactor,
	})
	if err != nil {
		return err
	}
	return itemData(c, fiber.StatusCreated, item)
}

func parseItemListQuery(c *fiber.Ctx) (service.ItemListFilter, error) {
	var query dto.ItemListQuery
	if err := c.QueryParser(&query); err != nil {
		return service.ItemListFilter{}, apperrors.NewValidationError("invalid query", nil)
	}
	filter := service.ItemListFilter{}
	if typ := strings.TrimSpace(query.Type); typ != "" {
		itemType := domain.ItemType(typ)
		if !itemType.Valid() {
			return filter, apperrors.NewInvalidType("invalid item type")
		}
		filter.Type = &itemType
	}
	if st := strings.TrimSpace(query.Status); st != "" {
		status := domain.ItemStatus(st)
		if !status.Valid() {
			return filter, apperrors.NewInvalidType("invalid status")
		}
		filter.Status = &status
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.Search = &search
	}
	return filter, nil
}
