package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/token"
)

// SessionUser attaches the user logged in on m, if any, to every request.
func SessionUser(m *opsauth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m != nil {
				if user, ok := m.User(); ok {
					r = r.WithContext(opsauth.ContextWithUser(r.Context(), *user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserResolver looks up the account behind a bearer token. *gateway.Client
// implements it.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (opsauth.User, error)
}

// BearerUser resolves the request's bearer token through resolver and
// attaches the account when it is active. Malformed tokens and JWTs whose exp
// claim has passed are not sent to the resolver; opaque tokens always are. Requests without a usable token pass
// through anonymously; the guard decides what to do with them.
func BearerUser(resolver UserResolver) func(http.Handler) http.Handler {
	var validator token.Validator
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := resolveBearer(r, resolver, validator); ok {
				r = r.WithContext(opsauth.ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveBearer(r *http.Request, resolver UserResolver, v token.Validator) (opsauth.User, bool) {
	if resolver == nil {
		return opsauth.User{}, false
	}
	tok, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return opsauth.User{}, false
	}
	if err := v.Check(tok, time.Time{}); err != nil && !errors.Is(err, token.ErrNoExpiry) {
		return opsauth.User{}, false
	}
	user, err := resolver.CurrentUser(r.Context(), tok)
	if err != nil || !user.Active {
		return opsauth.User{}, false
	}
	return user, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	tok := strings.TrimSpace(value[len(bearer):])
	if tok == "" {
		return "", false
	}

	return tok, true
}
