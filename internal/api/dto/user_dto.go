package dto

import (
	"time"

	"github.com/hse-tools/permit-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string      `json:"username" validate:"required,min=3,max=64"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     domain.Role `json:"role" validate:"required"`
}

// LoginRequest accepts either email or username.
type LoginRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
}

// Identifier returns whichever login handle was supplied.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse maps a user reference; nil stays nil.
func NewUserResponse(ref *domain.UserRef) *UserResponse {
	if ref == nil {
		return nil
	}
	return &UserResponse{ID: ref.ID, Username: ref.Username, Email: ref.Email, Role: ref.Role}
}

// NewAuthResponse pairs a token with the account it was issued for.
func NewAuthResponse(user *domain.User, token domain.Token) AuthResponse {
	return AuthResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      *NewUserResponse(user.Ref()),
	}
}

// NewUserResponses maps a directory listing.
func NewUserResponses(refs []domain.UserRef) []UserResponse {
	out := make([]UserResponse, 0, len(refs))
	for i := range refs {
		out = append(out, *NewUserResponse(&refs[i]))
	}
	return out
}
