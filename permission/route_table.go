package permission

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultPolicy decides routes that match no registered prefix.
type DefaultPolicy uint8

const (
	// AllowAuthenticated lets any authenticated user through unknown routes.
	AllowAuthenticated DefaultPolicy = iota
	// Deny rejects unknown routes for everyone but administrators.
	Deny
)

// ParseDefaultPolicy maps "allow"/"allow-authenticated" and "deny" to a policy.
func ParseDefaultPolicy(s string) (DefaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow", "allow-authenticated":
		return AllowAuthenticated, nil
	case "deny":
		return Deny, nil
	default:
		return AllowAuthenticated, errors.New("unknown default route policy: " + s)
	}
}

func (p DefaultPolicy) String() string {
	if p == Deny {
		return "deny"
	}
	return "allow-authenticated"
}

type routeRule struct {
	prefix string
	roles  []Role
}

// RouteTable maps route prefixes to the roles allowed to open them.
//
// Rules are registered during initialization, then the table is frozen and
// only read. Matching is by whole path segment and the longest prefix wins.
type RouteTable struct {
	policy DefaultPolicy

	mu     sync.RWMutex
	rules  []routeRule
	frozen bool
}

// NewRouteTable returns an empty table deciding unknown routes with policy.
func NewRouteTable(policy DefaultPolicy) *RouteTable {
	return &RouteTable{policy: policy}
}

// DefaultRouteTable returns the console's frozen route table.
func DefaultRouteTable(policy DefaultPolicy) *RouteTable {
	rt := NewRouteTable(policy)
	for prefix, roles := range defaultRoutes {
		// defaultRoutes is a fixed literal; registration cannot fail.
		_ = rt.Register(prefix, roles...)
	}
	rt.Freeze()
	return rt
}

var defaultRoutes = map[string][]Role{
	"/admin":          {RoleAdministrator},
	"/operations":     {RoleOperator},
	"/flights/manage": {RoleOperator},
	"/aircraft":       {RoleOperator},
	"/crew":           {RoleOperator},
	"/airports":       {RoleOperator},
	"/reservations":   {RoleBookingAgent},
	"/bookings":       {RoleBookingAgent},
	"/passengers":     {RoleBookingAgent},
	"/my-trips":       {RolePassenger},
}

// Register adds a rule requiring one of roles for prefix and everything below it.
func (rt *RouteTable) Register(prefix string, roles ...Role) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.frozen {
		return errors.New("route table frozen")
	}

	if len(roles) == 0 {
		return errors.New("route rule requires at least one role")
	}
	for _, r := range roles {
		if !r.Valid() {
			return errors.New("route rule has unknown role: " + string(r))
		}
	}

	normalized := normalizeRoute(prefix)
	for _, rule := range rt.rules {
		if rule.prefix == normalized {
			return errors.New("route already registered: " + normalized)
		}
	}

	cp := make([]Role, len(roles))
	copy(cp, roles)
	rt.rules = append(rt.rules, routeRule{prefix: normalized, roles: cp})

	sort.Slice(rt.rules, func(i, j int) bool {
		return len(rt.rules[i].prefix) > len(rt.rules[j].prefix)
	})
	return nil
}

// Freeze prevents further registrations.
func (rt *RouteTable) Freeze() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.frozen = true
}

// Policy returns the decision applied to unmatched routes.
func (rt *RouteTable) Policy() DefaultPolicy {
	return rt.policy
}

// Required returns the roles guarding route and whether any rule matched.
func (rt *RouteTable) Required(route string) ([]Role, bool) {
	normalized := normalizeRoute(route)

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for _, rule := range rt.rules {
		if matchesPrefix(normalized, rule.prefix) {
			out := make([]Role, len(rule.roles))
			copy(out, rule.roles)
			return out, true
		}
	}
	return nil, false
}

// CanAccess reports whether an authenticated holder of role may open route.
// Unauthenticated callers must be rejected before reaching the table.
func (rt *RouteTable) CanAccess(role Role, route string) bool {
	required, ok := rt.Required(route)
	if !ok {
		if rt.policy == Deny {
			return HasRole(role, RoleAdministrator)
		}
		return true
	}
	return HasAnyRole(role, required...)
}

func matchesPrefix(route, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(route, prefix) {
		return false
	}
	return len(route) == len(prefix) || route[len(prefix)] == '/'
}

func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = strings.TrimSpace(route)
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return strings.ToLower(path.Clean(route))
}
