package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/workflow"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	user := &domain.User{ID: "u-1", Username: "carla", Role: domain.RoleContractor}

	token, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: "u-1", Username: "carla", Role: domain.RoleContractor}, claims.Identity())
}

func TestParseToken_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	other := NewTokenManager("other", 5)
	token, err := other.GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleHSE})
	require.NoError(t, err)

	_, err = tm.ParseToken(token.Value)
	assert.Error(t, err)

	expired := NewTokenManager("secret", 5)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleHSE})
	require.NoError(t, err)
	_, err = tm.ParseToken(old.Value)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1", Role: domain.RoleHSE})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(raw)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.Error(t, ComparePassword(hash, "nope"))
}

func newGuardedApp(tm *TokenManager, op workflow.Operation) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"message": de.Message})
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/x", mw.Handle, Guard(op), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.UserID)
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newGuardedApp(tm, workflow.OpCreatePTW)

	hse, err := tm.GenerateToken(&domain.User{ID: "hse-1", Role: domain.RoleHSE})
	require.NoError(t, err)
	contractor, err := tm.GenerateToken(&domain.User{ID: "c-1", Role: domain.RoleContractor})
	require.NoError(t, err)
	noRole, err := tm.GenerateToken(&domain.User{ID: "c-2"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusForbidden},
		{"malformed header", "Token abc", http.StatusForbidden},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
		{"missing role", "Bearer " + noRole.Value, http.StatusForbidden},
		{"wrong role", "Bearer " + contractor.Value, http.StatusForbidden},
		{"allowed", "Bearer " + hse.Value, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
