package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/api/dto"
	"github.com/hse-tools/permit-service/internal/service"
)

// RequestsHandler serves /api/requests.
type RequestsHandler struct {
	requests *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{requests: requestService}
}

// List GET /api/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	requests, err := h.requests.ListRequests(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponses(requests)})
}

// Create POST /api/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.CreateRequest(c.UserContext(), actor, req.ContractorID, req.ItemID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Get GET /api/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	request, err := h.requests.GetRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// UpdateStatus PUT /api/requests/:id.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.UpdateRequestStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}
