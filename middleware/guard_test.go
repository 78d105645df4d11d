package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/permission"
)

func TestGuardAnonymousIsUnauthorized(t *testing.T) {
	h := Guard(Authenticated())(okHandler)

	rec := serve(h, requestAs(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardNilCheckRequiresUser(t *testing.T) {
	h := Guard(nil)(okHandler)

	if rec := serve(h, requestAs(http.MethodGet, "/", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := serve(h, requestAs(http.MethodGet, "/", userWithRole(opsauth.RolePassenger))); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGuardAnonymousNeverPasses(t *testing.T) {
	allowAll := func(*http.Request, *opsauth.User) bool { return true }
	h := Guard(allowAll)(okHandler)

	if rec := serve(h, requestAs(http.MethodGet, "/", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardRoles(t *testing.T) {
	h := Guard(Roles(opsauth.RoleBookingAgent, opsauth.RoleOperator))(okHandler)

	cases := map[opsauth.Role]int{
		opsauth.RoleAdministrator: http.StatusOK,
		opsauth.RoleOperator:      http.StatusOK,
		opsauth.RoleBookingAgent:  http.StatusOK,
		opsauth.RolePassenger:     http.StatusForbidden,
	}
	for role, want := range cases {
		rec := serve(h, requestAs(http.MethodGet, "/reservations", userWithRole(role)))
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestGuardForbiddenBody(t *testing.T) {
	h := Guard(Roles(opsauth.RoleOperator))(okHandler)

	rec := serve(h, requestAs(http.MethodGet, "/crew", userWithRole(opsauth.RolePassenger)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "access denied") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestGuardRouteDefaultTable(t *testing.T) {
	h := Guard(Route(nil))(okHandler)

	cases := []struct {
		role opsauth.Role
		path string
		want int
	}{
		{opsauth.RoleAdministrator, "/admin/users", http.StatusOK},
		{opsauth.RoleOperator, "/admin/users", http.StatusForbidden},
		{opsauth.RoleOperator, "/aircraft/A320", http.StatusOK},
		{opsauth.RolePassenger, "/my-trips", http.StatusOK},
		{opsauth.RolePassenger, "/help", http.StatusOK},
	}
	for _, tc := range cases {
		rec := serve(h, requestAs(http.MethodGet, tc.path, userWithRole(tc.role)))
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.role, tc.path, tc.want, rec.Code)
		}
	}
}

func TestGuardRouteDenyPolicy(t *testing.T) {
	h := Guard(Route(permission.DefaultRouteTable(permission.Deny)))(okHandler)

	if rec := serve(h, requestAs(http.MethodGet, "/help", userWithRole(opsauth.RoleOperator))); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unlisted route, got %d", rec.Code)
	}
	if rec := serve(h, requestAs(http.MethodGet, "/aircraft", userWithRole(opsauth.RoleOperator))); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for listed route, got %d", rec.Code)
	}
}

func TestGuardFallback(t *testing.T) {
	fallback := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Guard(Roles(opsauth.RoleOperator), WithFallback(fallback))(okHandler)

	if rec := serve(h, requestAs(http.MethodGet, "/crew", nil)); rec.Code != http.StatusTeapot {
		t.Fatalf("expected fallback for anonymous, got %d", rec.Code)
	}
	if rec := serve(h, requestAs(http.MethodGet, "/crew", userWithRole(opsauth.RolePassenger))); rec.Code != http.StatusTeapot {
		t.Fatalf("expected fallback for forbidden, got %d", rec.Code)
	}
}

func TestGuardRecordsDenials(t *testing.T) {
	recorder := &recordingRecorder{}
	h := Guard(Route(nil), WithDenialRecorder(recorder))(okHandler)

	serve(h, requestAs(http.MethodGet, "/admin/users", userWithRole(opsauth.RoleOperator)))
	serve(h, requestAs(http.MethodGet, "/admin", nil))
	serve(h, requestAs(http.MethodGet, "/aircraft", userWithRole(opsauth.RoleOperator)))

	if len(recorder.denials) != 2 {
		t.Fatalf("expected 2 denials, got %+v", recorder.denials)
	}
	if recorder.denials[0].userID != "u-operator" || recorder.denials[0].route != "/admin/users" {
		t.Fatalf("unexpected first denial %+v", recorder.denials[0])
	}
	if recorder.denials[1].userID != "" {
		t.Fatalf("anonymous denial should carry no user, got %+v", recorder.denials[1])
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"BEARER  abc ": "abc",
		"Bearer ":      "",
		"Basic abc":    "",
		"":             "",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("bearerToken(%q) = %q, %v", header, got, ok)
		}
	}
}
