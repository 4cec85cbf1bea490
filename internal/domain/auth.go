package domain

import "time"

// Identity is the authenticated caller as carried by an access token.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// Token describes an issued access token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
