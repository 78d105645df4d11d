package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/MrEthical07/opsauth"
)

func newEchoConsole(user *opsauth.User, opts ...Option) *echo.Echo {
	e := echo.New()
	e.Use(echo.WrapMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(opsauth.ContextWithUser(r.Context(), *user))
			}
			next.ServeHTTP(w, r)
		})
	}))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/admin/users", ok, EchoGuard(Route(nil), opts...))
	e.GET("/reservations", ok, EchoGuard(Roles(opsauth.RoleBookingAgent), opts...))
	return e
}

func serveEcho(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEchoGuardAllows(t *testing.T) {
	e := newEchoConsole(userWithRole(opsauth.RoleAdministrator))

	for _, path := range []string{"/admin/users", "/reservations"} {
		if rec := serveEcho(e, path); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestEchoGuardDenials(t *testing.T) {
	cases := []struct {
		user *opsauth.User
		path string
		code int
		msg  string
	}{
		{nil, "/reservations", http.StatusUnauthorized, "unauthorized"},
		{userWithRole(opsauth.RolePassenger), "/reservations", http.StatusForbidden, "access denied"},
		{userWithRole(opsauth.RoleOperator), "/admin/users", http.StatusForbidden, "access denied"},
	}
	for _, tc := range cases {
		rec := serveEcho(newEchoConsole(tc.user), tc.path)
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.code, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != tc.msg {
			t.Fatalf("expected %q, got %q", tc.msg, body["error"])
		}
	}
}

func TestEchoGuardFallbackAndRecorder(t *testing.T) {
	recorder := &recordingRecorder{}
	fallback := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	e := newEchoConsole(userWithRole(opsauth.RolePassenger), WithFallback(fallback), WithDenialRecorder(recorder))

	if rec := serveEcho(e, "/admin/users"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected fallback status, got %d", rec.Code)
	}
	if len(recorder.denials) != 1 || recorder.denials[0].route != "/admin/users" {
		t.Fatalf("unexpected denials %+v", recorder.denials)
	}
}
