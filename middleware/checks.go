package middleware

import (
	"net/http"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/permission"
)

// Authenticated passes any logged-in user.
func Authenticated() Check {
	return func(_ *http.Request, user *opsauth.User) bool {
		return user != nil
	}
}

// Roles passes users holding any of roles. Administrators always pass.
func Roles(roles ...opsauth.Role) Check {
	return func(_ *http.Request, user *opsauth.User) bool {
		return opsauth.HasAnyRole(user, roles...)
	}
}

// Route decides by request path using rt, or the default console table when
// rt is nil. A *opsauth.Manager's table is available from its Routes method.
func Route(rt *permission.RouteTable) Check {
	return func(r *http.Request, user *opsauth.User) bool {
		if rt == nil {
			return opsauth.CanAccessRoute(user, r.URL.Path)
		}
		return user != nil && rt.CanAccess(user.Role, r.URL.Path)
	}
}
