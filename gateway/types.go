package gateway

import (
	"time"

	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewUser is the registration request body.
type NewUser struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Role     permission.Role `json:"role"`
}

// LoginResult is a decoded login response.
type LoginResult struct {
	Token     string
	TokenType string
	// ExpiresAt is derived from expires_in. Zero when the server omits it.
	ExpiresAt time.Time
	User      session.User
}

type loginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *session.User `json:"user"`
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r errorResponse) text() string {
	switch {
	case r.Detail != "":
		return r.Detail
	case r.Message != "":
		return r.Message
	default:
		return r.Error
	}
}
