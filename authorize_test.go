package opsauth

import (
	"testing"

	"github.com/MrEthical07/opsauth/permission"
)

func userWithRole(role Role) *User {
	return &User{ID: "u-" + string(role), Email: string(role) + "@x.com", Role: role, Active: true}
}

func TestAdministratorSatisfiesEveryRole(t *testing.T) {
	admin := userWithRole(RoleAdministrator)
	for _, role := range permission.Roles() {
		if !HasRole(admin, role) {
			t.Fatalf("administrator should satisfy %q", role)
		}
	}
	if !HasRole(admin, "pilot") {
		t.Fatal("administrator should satisfy even unknown roles")
	}
	lists := [][]Role{{RolePassenger}, {RoleOperator, RoleBookingAgent}, {"pilot"}}
	for _, list := range lists {
		if !HasAnyRole(admin, list...) {
			t.Fatalf("administrator should satisfy %v", list)
		}
	}
}

func TestNonAdministratorExactMatch(t *testing.T) {
	for _, have := range []Role{RoleOperator, RoleBookingAgent, RolePassenger} {
		user := userWithRole(have)
		for _, want := range permission.Roles() {
			got := HasRole(user, want)
			if got != (have == want) {
				t.Fatalf("HasRole(%q, %q) = %v", have, want, got)
			}
		}
	}
}

func TestNilUserIsUnauthenticated(t *testing.T) {
	if HasRole(nil, RolePassenger) || HasAnyRole(nil, RolePassenger) {
		t.Fatal("nil user must not satisfy role checks")
	}
	if CanAccessRoute(nil, "/dashboard") {
		t.Fatal("nil user must not access any route")
	}
}

func TestCanAccessRoute(t *testing.T) {
	cases := []struct {
		role  Role
		route string
		want  bool
	}{
		{RoleAdministrator, "/admin/users", true},
		{RoleOperator, "/admin/users", false},
		{RoleOperator, "/aircraft/A320", true},
		{RoleBookingAgent, "/aircraft", false},
		{RoleBookingAgent, "/reservations?page=2", true},
		{RolePassenger, "/my-trips", true},
		{RolePassenger, "/dashboard", true},
		{"pilot", "/dashboard", true},
		{"pilot", "/crew", false},
	}
	for _, tc := range cases {
		if got := CanAccessRoute(userWithRole(tc.role), tc.route); got != tc.want {
			t.Fatalf("CanAccessRoute(%q, %q) = %v, want %v", tc.role, tc.route, got, tc.want)
		}
	}
}
