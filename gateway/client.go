package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/MrEthical07/opsauth/session"
)

const (
	// DefaultTimeout bounds each request when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader carries a fresh uuid on every request.
	RequestIDHeader = "X-Request-ID"

	// maxExpiresIn caps expires_in (100 years) so the lifetime fits a
	// time.Duration.
	maxExpiresIn = 100 * 365 * 24 * 60 * 60

	opLogin    = "login"
	opRegister = "register"
	opLogout   = "logout"
	opMe       = "me"
)

// Config configures a [Client].
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient replaces the underlying transport. Optional.
	HTTPClient *http.Client
}

// Observer receives the outcome of every request. err is nil on success.
type Observer func(op string, elapsed time.Duration, err error)

// Option customizes a [Client].
type Option func(*Client)

// WithObserver registers fn to be called after every request.
func WithObserver(fn Observer) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// WithClock overrides the clock used to derive token expiry from expires_in.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client talks to the authentication API. It is safe for concurrent use.
type Client struct {
	rc      *resty.Client
	observe Observer
	now     func() time.Time
}

// New validates cfg and returns a [Client].
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, errors.New("gateway base URL must be an absolute http(s) URL")
	}
	timeout := cfg.Timeout
	if timeout < 0 {
		return nil, errors.New("gateway timeout must be >= 0")
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(base.String()).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(RequestIDHeader, uuid.NewString())
		return nil
	})

	c := &Client{rc: rc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a bearer token and the account record.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	body, err := c.do(ctx, opLogin, http.MethodPost, "/auth/login", "", creds)
	if err != nil {
		return LoginResult{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LoginResult{}, newError(opLogin, KindMalformed, http.StatusOK, "", err)
	}
	if resp.AccessToken == "" || resp.User == nil || !identified(*resp.User) {
		return LoginResult{}, newError(opLogin, KindMalformed, http.StatusOK, "missing token or user", nil)
	}
	if resp.TokenType != "" && !strings.EqualFold(resp.TokenType, "bearer") {
		return LoginResult{}, newError(opLogin, KindMalformed, http.StatusOK, "unsupported token type "+resp.TokenType, nil)
	}
	if resp.ExpiresIn < 0 {
		return LoginResult{}, newError(opLogin, KindMalformed, http.StatusOK, "negative expires_in", nil)
	}

	result := LoginResult{
		Token:     resp.AccessToken,
		TokenType: resp.TokenType,
		User:      *resp.User,
	}
	if resp.ExpiresIn > 0 {
		result.ExpiresAt = c.now().Add(time.Duration(min(resp.ExpiresIn, maxExpiresIn)) * time.Second)
	}
	return result, nil
}

// Register creates an account. The role in u is sent as given; callers that
// must not escalate privileges set it themselves.
func (c *Client) Register(ctx context.Context, u NewUser) error {
	_, err := c.do(ctx, opRegister, http.MethodPost, "/auth/register", "", u)
	return err
}

// Logout asks the server to revoke token.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, opLogout, http.MethodPost, "/auth/logout", token, nil)
	return err
}

// CurrentUser returns the account that owns token.
func (c *Client) CurrentUser(ctx context.Context, token string) (session.User, error) {
	body, err := c.do(ctx, opMe, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return session.User{}, err
	}
	var user session.User
	if err := json.Unmarshal(body, &user); err != nil {
		return session.User{}, newError(opMe, KindMalformed, http.StatusOK, "", err)
	}
	if !identified(user) {
		return session.User{}, newError(opMe, KindMalformed, http.StatusOK, "missing user identity", nil)
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(op, time.Since(start), err)
		}
	}()

	req := c.rc.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	resp, reqErr := req.Execute(method, path)
	if reqErr != nil {
		return nil, newError(op, KindNetwork, 0, "", reqErr)
	}

	status := resp.StatusCode()
	switch {
	case status >= http.StatusInternalServerError:
		return nil, newError(op, KindNetwork, status, serverMessage(resp.Body()), nil)
	case status >= http.StatusBadRequest:
		return nil, newError(op, KindRejected, status, serverMessage(resp.Body()), nil)
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, newError(op, KindMalformed, status, "unexpected status", nil)
	}
	return resp.Body(), nil
}

func newError(op string, kind Kind, status int, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Message: msg, Err: err}
}

func serverMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.text()
}

func identified(u session.User) bool {
	return u.ID != "" && u.Email != ""
}
