package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/observability"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and stores the caller identity.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
// A missing token or role is FORBIDDEN; a token that fails verification is UNAUTHENTICATED.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewForbidden("no token provided")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewForbidden("no token provided")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}
	if !claims.Role.Valid() {
		return apperrors.NewForbidden("role not found in token")
	}
	if claims.UserID == "" {
		return apperrors.NewUnauthenticated("invalid token")
	}

	identity := claims.Identity()
	c.Locals(principalKey, &identity)
	c.Locals(observability.PrincipalIDKey, identity.UserID)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated identity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Identity)
	return principal, ok
}

// MustPrincipal returns the identity or a FORBIDDEN error for routes mounted without Handle.
func MustPrincipal(c *fiber.Ctx) (*domain.Identity, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewForbidden("no token provided")
	}
	return principal, nil
}
