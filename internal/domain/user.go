package domain

import "time"

// Role identifies what a caller may do in the change-management workflow.
type Role string

const (
	RoleContractor Role = "Contractor"
	RoleHSE        Role = "HSE"
)

// Valid reports whether the role is one the service recognizes.
func (r Role) Valid() bool {
	return r == RoleContractor || r == RoleHSE
}

// User is an account that proposes MOCs (Contractor) or reviews them (HSE).
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// UserRef is the expanded view of a referenced user.
type UserRef struct {
	ID       string
	Username string
	Email    string
	Role     Role
}

// Ref projects a user onto its public fields.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
