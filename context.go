package opsauth

import "context"

type userContextKey struct{}

// ContextWithUser attaches the authenticated user to ctx. Guards in the
// middleware package read it back with UserFromContext.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user attached by ContextWithUser.
func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(userContextKey{}).(User)
	if !ok {
		return nil, false
	}
	return &user, true
}
