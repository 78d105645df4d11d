package opsauth

import "github.com/MrEthical07/opsauth/permission"

var consoleRoutes = permission.DefaultRouteTable(permission.AllowAuthenticated)

// HasRole reports whether user satisfies role. Administrators satisfy every
// role; a nil user satisfies none.
func HasRole(user *User, role Role) bool {
	if user == nil {
		return false
	}
	return permission.HasRole(user.Role, role)
}

// HasAnyRole reports whether HasRole holds for at least one of roles.
func HasAnyRole(user *User, roles ...Role) bool {
	if user == nil {
		return false
	}
	return permission.HasAnyRole(user.Role, roles...)
}

// CanAccessRoute decides route against the default console route table.
// Routes missing from the table are open to any authenticated user.
func CanAccessRoute(user *User, route string) bool {
	return canAccess(consoleRoutes, user, route)
}

func canAccess(rt *permission.RouteTable, user *User, route string) bool {
	if user == nil {
		return false
	}
	return rt.CanAccess(user.Role, route)
}
