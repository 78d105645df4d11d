package opsauth

import (
	"time"

	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
)

// User is the account record of the logged-in user.
type User = session.User

// Role is a coarse-grained permission tier.
type Role = permission.Role

const (
	RoleAdministrator = permission.RoleAdministrator
	RoleOperator      = permission.RoleOperator
	RoleBookingAgent  = permission.RoleBookingAgent
	RolePassenger     = permission.RolePassenger
)

// Session is the authenticated state held by a [Manager]. It is replaced as a
// whole and never patched.
type Session struct {
	Token string
	// ExpiresAt is the expiry declared by the server at login. Zero if none was
	// declared; the token itself may still carry one.
	ExpiresAt time.Time
	User      User
}

func (s Session) record() session.Record {
	return session.Record{Token: s.Token, ExpiresAt: s.ExpiresAt, User: s.User}
}

// RegisterRequest is the self-registration form. Role is accepted so callers
// can pass form data through unchanged; it is never sent.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}
