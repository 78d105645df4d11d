package opsauth

import (
	"context"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/internal/stubapi"
	"github.com/MrEthical07/opsauth/password"
	"github.com/MrEthical07/opsauth/session"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = baseURL
	cfg.Gateway.Timeout = 5 * time.Second
	cfg.Storage.Backend = StorageMemory
	return cfg
}

func fastPasswords() password.Config {
	cfg := password.DefaultConfig()
	cfg.Memory = 8 * 1024
	cfg.Parallelism = 1
	return cfg
}

// newStubServer starts the demo authentication API on a loopback listener.
func newStubServer(t *testing.T) (*stubapi.Server, *httptest.Server) {
	t.Helper()
	api, err := stubapi.NewDemo(stubapi.DemoConfig{Password: fastPasswords()})
	if err != nil {
		t.Fatalf("NewDemo: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func buildManager(t *testing.T, b *Builder) *Manager {
	t.Helper()
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(m.Teardown)
	return m
}

// newStubManager returns a Manager talking to a fresh demo server and
// persisting into store.
func newStubManager(t *testing.T, store session.Store) (*Manager, *stubapi.Server, *httptest.Server) {
	t.Helper()
	api, srv := newStubServer(t)
	m := buildManager(t, New().WithConfig(testConfig(srv.URL)).WithStore(store))
	return m, api, srv
}

// unreachableURL returns the address of a server that has already shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	return url
}

type fakeGateway struct {
	login       func(context.Context, gateway.Credentials) (gateway.LoginResult, error)
	register    func(context.Context, gateway.NewUser) error
	currentUser func(context.Context, string) (User, error)

	logouts atomic.Int32
	calls   atomic.Int32
}

func (g *fakeGateway) Login(ctx context.Context, creds gateway.Credentials) (gateway.LoginResult, error) {
	g.calls.Add(1)
	if g.login == nil {
		return gateway.LoginResult{}, &gateway.Error{Kind: gateway.KindRejected, Op: "login", Status: 401}
	}
	return g.login(ctx, creds)
}

func (g *fakeGateway) Register(ctx context.Context, u gateway.NewUser) error {
	g.calls.Add(1)
	if g.register == nil {
		return nil
	}
	return g.register(ctx, u)
}

func (g *fakeGateway) Logout(context.Context, string) error {
	g.calls.Add(1)
	g.logouts.Add(1)
	return nil
}

func (g *fakeGateway) CurrentUser(ctx context.Context, tok string) (User, error) {
	g.calls.Add(1)
	if g.currentUser == nil {
		return User{}, &gateway.Error{Kind: gateway.KindRejected, Op: "me", Status: 401}
	}
	return g.currentUser(ctx, tok)
}

func operatorUser() User {
	return User{
		ID:        "u-ops",
		Email:     "ops@x.com",
		Name:      "Ops",
		Role:      RoleOperator,
		Active:    true,
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
