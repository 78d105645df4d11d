package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/opsauth/permission"
)

const adminUserJSON = `{"id":"u-1","email":"admin@x.com","name":"Admin","role":"administrator","is_active":true,"created_at":"2024-01-02T03:04:05Z"}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second, UserAgent: "opsauth-test"}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestLoginSuccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var gotCreds Credentials
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "opsauth-test" {
			t.Errorf("missing user agent")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCreds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600,"user":` + adminUserJSON + `}`))
	}, WithClock(func() time.Time { return now }))

	res, err := c.Login(context.Background(), Credentials{Email: "admin@x.com", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotCreds.Email != "admin@x.com" || gotCreds.Password != "admin123" {
		t.Fatalf("unexpected credentials sent: %+v", gotCreds)
	}
	if res.Token != "tok-1" {
		t.Fatalf("unexpected token %q", res.Token)
	}
	if !res.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", res.ExpiresAt)
	}
	if res.User.Role != permission.RoleAdministrator || !res.User.Active {
		t.Fatalf("unexpected user %+v", res.User)
	}
}

func TestLoginClampsHugeExpiresIn(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":10000000000,"user":` + adminUserJSON + `}`))
	}, WithClock(func() time.Time { return now }))

	res, err := c.Login(context.Background(), Credentials{Email: "admin@x.com", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.ExpiresAt.After(now.AddDate(99, 0, 0)) {
		t.Fatalf("expiry should be far in the future, got %v", res.ExpiresAt)
	}
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid email or password"}`))
	})

	_, err := c.Login(context.Background(), Credentials{Email: "a@x.com", Password: "nope"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gwErr.Status != http.StatusUnauthorized || gwErr.Message != "Invalid email or password" || gwErr.Op != "login" {
		t.Fatalf("unexpected error fields %+v", gwErr)
	}
}

func TestLoginMalformedShapes(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>oops</html>`,
		"no token":      `{"token_type":"bearer","user":` + adminUserJSON + `}`,
		"no user":       `{"access_token":"tok","token_type":"bearer"}`,
		"anonymous":     `{"access_token":"tok","user":{"name":"x"}}`,
		"bad type":      `{"access_token":"tok","token_type":"mac","user":` + adminUserJSON + `}`,
		"negative ttl":  `{"access_token":"tok","expires_in":-5,"user":` + adminUserJSON + `}`,
		"wrong payload": `[1,2,3]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Login(context.Background(), Credentials{Email: "a@x.com", Password: "pw"})
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Login(context.Background(), Credentials{Email: "a@x.com", Password: "pw"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected KindNetwork, got %v", KindOf(err))
	}
}

func TestServerErrorIsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.CurrentUser(context.Background(), "tok")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork for 503, got %v", err)
	}
}

func TestTimeoutIsNetwork(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Logout(context.Background(), "tok"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork on timeout, got %v", err)
	}
}

func TestNoRetries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	})

	_ = c.Register(context.Background(), NewUser{Email: "n@x.com", Password: "secret1", Name: "N", Role: permission.RolePassenger})

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestBearerAndRequestIDHeaders(t *testing.T) {
	var auth, reqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(adminUserJSON))
	})

	user, err := c.CurrentUser(context.Background(), "tok-abc")
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.Email != "admin@x.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if auth != "Bearer tok-abc" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if _, err := uuid.Parse(reqID); err != nil {
		t.Fatalf("expected uuid request id, got %q", reqID)
	}
}

func TestRegisterSendsBody(t *testing.T) {
	var got NewUser
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	in := NewUser{Email: "n@x.com", Password: "secret1", Name: "New User", Role: permission.RolePassenger}
	if err := c.Register(context.Background(), in); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got != in {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email already registered"}`))
	})
	err := c.Register(context.Background(), NewUser{Email: "dup@x.com", Password: "secret1"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestObserverSeesEveryRequest(t *testing.T) {
	var ops []string
	var errs []error
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(adminUserJSON))
	}, WithObserver(func(op string, _ time.Duration, err error) {
		ops = append(ops, op)
		errs = append(errs, err)
	}))

	_, _ = c.CurrentUser(context.Background(), "tok")
	_ = c.Logout(context.Background(), "tok")

	if len(ops) != 2 || ops[0] != "me" || ops[1] != "logout" {
		t.Fatalf("unexpected ops %v", ops)
	}
	if errs[0] != nil || !errors.Is(errs[1], ErrRejected) {
		t.Fatalf("unexpected observed errors %v", errs)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []Config{
		{},
		{BaseURL: "not a url"},
		{BaseURL: "ftp://host"},
		{BaseURL: "http://host", Timeout: -time.Second},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
