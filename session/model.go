package session

import (
	"time"

	"github.com/MrEthical07/opsauth/permission"
)

// User is the account record owned by an authenticated session. It is sourced
// from the authentication API and replaced wholesale, never patched.
type User struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      permission.Role `json:"role"`
	Active    bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	LastLogin *time.Time      `json:"last_login,omitempty"`
}

// Record is the persisted form of a session.
type Record struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Empty reports whether r carries no token.
func (r Record) Empty() bool {
	return r.Token == ""
}
