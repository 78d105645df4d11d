package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/opsauth"
)

// Check decides whether user may reach r. user is nil for anonymous requests.
type Check func(r *http.Request, user *opsauth.User) bool

// DenialRecorder is told about every refused request. *opsauth.Manager
// implements it.
type DenialRecorder interface {
	RecordAccessDenied(ctx context.Context, user *opsauth.User, route string)
}

type guardConfig struct {
	fallback http.Handler
	recorder DenialRecorder
}

// Option configures a guard.
type Option func(*guardConfig)

// WithFallback serves h instead of the default 401/403 responses.
func WithFallback(h http.Handler) Option {
	return func(c *guardConfig) {
		c.fallback = h
	}
}

// WithDenialRecorder reports refused requests to rec.
func WithDenialRecorder(rec DenialRecorder) Option {
	return func(c *guardConfig) {
		c.recorder = rec
	}
}

// Guard serves the wrapped handler only when check passes.
func Guard(check Check, opts ...Option) func(http.Handler) http.Handler {
	cfg := newGuardConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, allowed := evaluate(check, r)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}
			cfg.deny(w, r, user)
		})
	}
}

func newGuardConfig(opts []Option) guardConfig {
	var cfg guardConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// evaluate never lets an anonymous request through, whatever check says.
func evaluate(check Check, r *http.Request) (*opsauth.User, bool) {
	user, ok := opsauth.UserFromContext(r.Context())
	if !ok || user == nil {
		return nil, false
	}
	if check == nil {
		return user, true
	}
	return user, check(r, user)
}

func (c guardConfig) deny(w http.ResponseWriter, r *http.Request, user *opsauth.User) {
	if c.recorder != nil {
		c.recorder.RecordAccessDenied(r.Context(), user, r.URL.Path)
	}
	if c.fallback != nil {
		c.fallback.ServeHTTP(w, r)
		return
	}
	status, msg := denial(user)
	http.Error(w, msg, status)
}

func denial(user *opsauth.User) (int, string) {
	if user == nil {
		return http.StatusUnauthorized, "unauthorized"
	}
	return http.StatusForbidden, "access denied"
}
