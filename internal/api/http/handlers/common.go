package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/api/dto"
	"github.com/hse-tools/permit-service/internal/auth"
	"github.com/hse-tools/permit-service/internal/domain"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (domain.Identity, error) {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return domain.Identity{}, err
	}
	return *p, nil
}

// parseBody decodes and validates the JSON body into req.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Check(req)
}

func itemData(c *fiber.Ctx, status int, item *domain.Item) error {
	return c.Status(status).JSON(fiber.Map{"data": dto.NewItemResponse(item)})
}

func itemsData(c *fiber.Ctx, items []domain.Item) error {
	return c.JSON(fiber.Map{"data": dto.NewItemResponses(items)})
}
