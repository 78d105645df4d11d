package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/internal/stubapi"
	"github.com/MrEthical07/opsauth/password"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func requestAs(method, path string, user *opsauth.User) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if user != nil {
		req = req.WithContext(opsauth.ContextWithUser(req.Context(), *user))
	}
	return req
}

func userWithRole(role opsauth.Role) *opsauth.User {
	return &opsauth.User{ID: "u-" + string(role), Email: string(role) + "@x.com", Role: role, Active: true}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type deniedRequest struct {
	userID string
	route  string
}

type recordingRecorder struct {
	mu      sync.Mutex
	denials []deniedRequest
}

func (r *recordingRecorder) RecordAccessDenied(_ context.Context, user *opsauth.User, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := deniedRequest{route: route}
	if user != nil {
		d.userID = user.ID
	}
	r.denials = append(r.denials, d)
}

func startStub(t *testing.T) (*stubapi.Server, *httptest.Server, *gateway.Client) {
	t.Helper()
	pw := password.DefaultConfig()
	pw.Memory = 8 * 1024
	pw.Parallelism = 1
	api, err := stubapi.NewDemo(stubapi.DemoConfig{Password: pw})
	if err != nil {
		t.Fatalf("NewDemo: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	client, err := gateway.New(gateway.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return api, srv, client
}
