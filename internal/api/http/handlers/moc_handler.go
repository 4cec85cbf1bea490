package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/service"
)

// MOCHandler serves the /api/moc workflow endpoints.
type MOCHandler struct {
	items *service.ItemService
}

// NewMOCHandler constructs handler.
func NewMOCHandler(itemService *service.ItemService) *MOCHandler {
	return &MOCHandler{items: itemService}
}

// Create POST /api/moc. Contractors create MOCs, HSE issues PTWs against approved MOCs.
func (h *MOCHandler) Create(c *fiber.Ctx) error {
	return createItem(c, h.items)
}

// List GET /api/moc.
func (h *MOCHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListMOCs(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return itemsData(c, items)
}

// ListOwn GET /api/moc/contractor.
func (h *MOCHandler) ListOwn(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListOwnMOCs(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return itemsData(c, items)
}

// JobStarted GET /api/moc/job-started.
func (h *MOCHandler) JobStarted(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListJobStarted(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return itemsData(c, items)
}

// AllJobStarted GET /api/moc/jobStarted.
func (h *MOCHandler) AllJobStarted(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListAllJobStarted(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return itemsData(c, items)
}

// PTWByMoc GET /api/moc/moc/:mocId.
func (h *MOCHandler) PTWByMoc(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	item, err := h.items.GetPTWByMoc(c.UserContext(), actor, c.Params("mocId"))
	if err != nil {
		return err
	}
	return itemData(c, fiber.StatusOK, item)
}

// Get GET /api/moc/:id.
func (h *MOCHandler) Get(c *fiber.Ctx) error {
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

// Submit PUT /api/moc/:id/submit.
func (h *MOCHandler) Submit(c *fiber.Ctx) error {
	return transition(c, h.items.Submit)
}

// Approve PUT /api/moc/:id/approve.
func (h *MOCHandler) Approve(c *fiber.Ctx) error {
	return transition(c, h.items.Approve)
}

// Reject PUT /api/moc/:id/reject.
func (h *MOCHandler) Reject(c *fiber.Ctx) error {
	return transition(c, h.items.Reject)
}

// Accept PUT /api/moc/:id/accept.
func (h *MOCHandler) Accept(c *fiber.Ctx) error {
	return transition(c, h.items.AcceptPTW)
}
