package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/api/dto"
	"github.com/hse-tools/permit-service/internal/service"
)

// ContractorsHandler serves the HSE contractor directory.
type ContractorsHandler struct {
	directory *service.DirectoryService
	requests  *RequestsHandler
}

// NewContractorsHandler constructs handler. Requests are delegated for the sendRequests alias.
func NewContractorsHandler(directory *service.DirectoryService, requests *RequestsHandler) *ContractorsHandler {
	return &ContractorsHandler{directory: directory, requests: requests}
}

// List GET /api/contractors.
func (h *ContractorsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	contractors, err := h.directory.ListContractors(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(contractors)})
}

// Get GET /api/contractors/:id.
func (h *ContractorsHandler) Get(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	contractor, err := h.directory.GetContractor(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(contractor)})
}

// SendRequest POST /api/contractors/sendRequests.
func (h *ContractorsHandler) SendRequest(c *fiber.Ctx) error {
	return h.requests.Create(c)
}
