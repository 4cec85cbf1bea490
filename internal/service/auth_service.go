package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hse-tools/permit-service/internal/auth"
	"github.com/hse-tools/permit-service/internal/config"
	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/repository"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// RegisterInput carries the account registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   tokenMgr,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, domain.Token, error) {
	if !input.Role.Valid() {
		return nil, domain.Token{}, apperrors.NewInvalidType("invalid role")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Token{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Token{}, apperrors.NewStorageError(err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.Token{}, apperrors.NewConflict("username already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Token{}, apperrors.NewStorageError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.Token{}, err
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.Token{}, apperrors.MapStoreError(err, "user")
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return user, token, nil
}

// Login authenticates by email or username.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, domain.Token, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Token{}, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, domain.Token{}, apperrors.NewStorageError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return user, token, nil
}

// Me returns the account behind the caller's token.
func (s *AuthService) Me(ctx context.Context, actor domain.Identity) (*domain.User, error) {
	if err := parseID(actor.UserID, "user"); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "user")
	}
	return user, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
