package permission

import "strings"

// Role is a coarse-grained permission tier assigned to a user.
//
// Values outside the closed set are kept verbatim (so a user record round-trips
// unchanged) but never satisfy any check.
type Role string

const (
	// RoleAdministrator satisfies every role check.
	RoleAdministrator Role = "administrator"
	// RoleOperator manages flights, aircraft, crew, and airports.
	RoleOperator Role = "operator"
	// RoleBookingAgent manages reservations and passengers.
	RoleBookingAgent Role = "booking-agent"
	// RolePassenger is the self-service tier. Self-registration always yields it.
	RolePassenger Role = "passenger"
)

var knownRoles = [...]Role{
	RoleAdministrator,
	RoleOperator,
	RoleBookingAgent,
	RolePassenger,
}

// Roles returns the closed role set in descending privilege order.
func Roles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles[:])
	return out
}

// ParseRole maps s to a member of the closed set. Matching ignores case,
// surrounding whitespace, and treats '_' and ' ' as '-'. The second result is
// false for unknown input.
func ParseRole(s string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	for _, r := range knownRoles {
		if string(r) == normalized {
			return r, true
		}
	}
	return Role(s), false
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	for _, known := range knownRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// HasRole reports whether a holder of have satisfies a check for want.
// Administrator satisfies every check; otherwise the roles must match exactly.
// An unknown have never matches.
func HasRole(have, want Role) bool {
	if !have.Valid() {
		return false
	}
	if have == RoleAdministrator {
		return true
	}
	return have == want
}

// HasAnyRole reports whether HasRole holds for at least one of wants.
// An empty list is never satisfied.
func HasAnyRole(have Role, wants ...Role) bool {
	for _, want := range wants {
		if HasRole(have, want) {
			return true
		}
	}
	return false
}
