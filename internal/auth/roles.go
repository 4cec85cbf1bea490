package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/workflow"
)

// Guard rejects callers whose role the policy table does not allow for op.
func Guard(op workflow.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := workflow.Authorize(op, principal.Role); err != nil {
			return err
		}
		return c.Next()
	}
}
