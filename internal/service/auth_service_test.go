package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-tools/permit-service/internal/config"
	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/repository/memory"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

func newAuthService(store *memory.Store) *AuthService {
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: 4}}
	return NewAuthService(cfg, AuthDependencies{UserRepo: store.Users()})
}

func TestRegisterAndLogin(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, RegisterInput{
		Username: "carla",
		Email:    "Carla@Example.com",
		Password: "s3cret-pass",
		Role:     domain.RoleContractor,
	})
	require.NoError(t, err)
	assert.Equal(t, "carla@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.NotEmpty(t, token.Value)

	claims, err := svc.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleContractor, claims.Role)

	byEmail, _, err := svc.Login(ctx, "CARLA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, _, err := svc.Login(ctx, "carla", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, _, err = svc.Login(ctx, "carla", "wrong")
	requireCode(t, err, apperrors.CodeUnauthenticated)
	_, _, err = svc.Login(ctx, "nobody", "s3cret-pass")
	requireCode(t, err, apperrors.CodeUnauthenticated)

	me, err := svc.Me(ctx, domain.Identity{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)
	assert.Equal(t, "carla", me.Username)
}

func TestRegister_Rejections(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	ctx := context.Background()
	addUser(t, store, "hana", domain.RoleHSE)

	_, _, err := svc.Register(ctx, RegisterInput{Username: "x", Email: "x@example.com", Password: "password1", Role: "Admin"})
	requireCode(t, err, apperrors.CodeInvalidType)

	_, _, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "hana@example.com", Password: "password1", Role: domain.RoleHSE})
	requireCode(t, err, apperrors.CodeConflict)

	_, _, err = svc.Register(ctx, RegisterInput{Username: "hana", Email: "new@example.com", Password: "password1", Role: domain.RoleHSE})
	requireCode(t, err, apperrors.CodeConflict)
}

func TestDirectoryService(t *testing.T) {
	store := memory.NewStore()
	svc := NewDirectoryService(store.Users())
	ctx := context.Background()
	zed := addUser(t, store, "zed", domain.RoleContractor)
	addUser(t, store, "amy", domain.RoleContractor)
	hse := addUser(t, store, "hana", domain.RoleHSE)

	_, err := svc.ListContractors(ctx, zed)
	requireCode(t, err, apperrors.CodeForbidden)

	contractors, err := svc.ListContractors(ctx, hse)
	require.NoError(t, err)
	require.Len(t, contractors, 2)
	assert.Equal(t, "amy", contractors[0].Username)
	assert.Equal(t, "zed", contractors[1].Username)

	got, err := svc.GetContractor(ctx, hse, zed.UserID)
	require.NoError(t, err)
	assert.Equal(t, "zed@example.com", got.Email)

	_, err = svc.GetContractor(ctx, hse, hse.UserID)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = svc.GetContractor(ctx, hse, "8f14e45f-ceea-467f-a8f2-9b6c2d1e0a11")
	requireCode(t, err, apperrors.CodeNotFound)
}
