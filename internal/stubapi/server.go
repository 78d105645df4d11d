// Package stubapi is an in-process implementation of the authentication API
// consumed by the gateway package. It backs tests and the opsctl stub-server
// command.
package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/MrEthical07/opsauth/internal/logging"
	"github.com/MrEthical07/opsauth/internal/rate"
	"github.com/MrEthical07/opsauth/password"
	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
	"github.com/MrEthical07/opsauth/token"
)

const invalidCredentials = "Invalid email or password"

var (
	// ErrDuplicateEmail is returned by Seed for an existing account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidAccount is returned by Seed for incomplete account data.
	ErrInvalidAccount = errors.New("invalid account data")
)

// Config wires a [Server]. Issuer and Hasher are required.
type Config struct {
	Issuer *token.Issuer
	Hasher *password.Hasher
	// Limiter throttles failed logins. Optional.
	Limiter *rate.Limiter
	Logger  *log.Logger
	Now     func() time.Time
}

type account struct {
	user session.User
	hash string
}

// Server holds accounts and revoked token IDs in memory.
type Server struct {
	issuer  *token.Issuer
	hasher  *password.Hasher
	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time

	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	revoked map[string]time.Time
}

// New returns an empty [Server].
func New(cfg Config) (*Server, error) {
	if cfg.Issuer == nil || cfg.Hasher == nil {
		return nil, errors.New("stubapi requires an issuer and a hasher")
	}
	s := &Server{
		issuer:  cfg.Issuer,
		hasher:  cfg.Hasher,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
		now:     cfg.Now,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		revoked: make(map[string]time.Time),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Seed creates an account directly, bypassing registration rules on role.
func (s *Server) Seed(email, pass, name string, role permission.Role, active bool) (session.User, error) {
	key := emailKey(email)
	if key == "" || !strings.Contains(key, "@") || strings.TrimSpace(name) == "" || !role.Valid() {
		return session.User{}, ErrInvalidAccount
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return session.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return session.User{}, ErrDuplicateEmail
	}
	acct := &account{
		user: session.User{
			ID:        uuid.NewString(),
			Email:     key,
			Name:      strings.TrimSpace(name),
			Role:      role,
			Active:    active,
			CreatedAt: s.now().UTC(),
		},
		hash: hash,
	}
	s.byEmail[key] = acct
	s.byID[acct.user.ID] = acct
	return acct.user, nil
}

// DemoAccount is a seeded login.
type DemoAccount struct {
	Email    string
	Password string
	Name     string
	Role     permission.Role
	Active   bool
}

// DemoAccounts are the logins created by SeedDemo.
var DemoAccounts = []DemoAccount{
	{Email: "admin@x.com", Password: "admin123", Name: "Console Administrator", Role: permission.RoleAdministrator, Active: true},
	{Email: "ops@x.com", Password: "ops1234", Name: "Duty Operator", Role: permission.RoleOperator, Active: true},
	{Email: "agent@x.com", Password: "agent123", Name: "Booking Agent", Role: permission.RoleBookingAgent, Active: true},
	{Email: "traveller@x.com", Password: "travel123", Name: "Frequent Traveller", Role: permission.RolePassenger, Active: true},
	{Email: "retired@x.com", Password: "retired123", Name: "Retired Agent", Role: permission.RoleBookingAgent, Active: false},
}

// SeedDemo creates DemoAccounts.
func (s *Server) SeedDemo() error {
	for _, d := range DemoAccounts {
		if _, err := s.Seed(d.Email, d.Password, d.Name, d.Role, d.Active); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the stored account for email.
func (s *Server) Lookup(email string) (session.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byEmail[emailKey(email)]
	if !ok {
		return session.User{}, false
	}
	return acct.user, true
}

// SetActive toggles an account. Tokens of a deactivated account stop
// resolving on /auth/me.
func (s *Server) SetActive(email string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byEmail[emailKey(email)]
	if !ok {
		return false
	}
	acct.user.Active = active
	return true
}

// Handler returns the HTTP routes of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        session.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()
	ip := clientIP(r)

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, req.Email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				writeDetail(w, http.StatusTooManyRequests, "too many failed attempts")
				return
			}
			s.logger.Error("login throttle check failed", "err", err)
			writeDetail(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		}
	}

	user, ok := s.authenticate(req.Email, req.Password)
	if !ok {
		s.recordFailure(ctx, req.Email, ip)
		writeDetail(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	if !user.Active {
		s.recordFailure(ctx, req.Email, ip)
		writeDetail(w, http.StatusForbidden, "account is inactive")
		return
	}

	tok, _, err := s.issuer.CreateAccess(user.ID, user.Email, user.Role.String())
	if err != nil {
		s.logger.Error("issue access token", "err", err)
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, req.Email, ip); err != nil {
			s.logger.Warn("reset login throttle", "err", err)
		}
	}
	user = s.touchLastLogin(user.ID)
	s.logger.Info("login", "user_id", user.ID, "role", user.Role)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.issuer.AccessTTL() / time.Second),
		User:        user,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := permission.RolePassenger
	if req.Role != "" {
		parsed, ok := permission.ParseRole(req.Role)
		if !ok {
			writeDetail(w, http.StatusUnprocessableEntity, "unknown role")
			return
		}
		role = parsed
	}

	user, err := s.Seed(req.Email, req.Password, req.Name, role, true)
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		writeDetail(w, http.StatusConflict, "email already registered")
		return
	case errors.Is(err, ErrInvalidAccount), errors.Is(err, password.ErrTooShort):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Error("register", "err", err)
		writeDetail(w, http.StatusInternalServerError, "could not create account")
		return
	}
	s.logger.Info("registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.bearerClaims(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.revoke(claims.ID, claims.ExpiresAt.Time)
	writeDetail(w, http.StatusOK, "logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.bearerClaims(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.mu.RLock()
	acct, found := s.byID[claims.Subject]
	var user session.User
	if found {
		user = acct.user
	}
	s.mu.RUnlock()

	if !found || !user.Active {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) authenticate(email, pass string) (session.User, bool) {
	s.mu.RLock()
	acct, ok := s.byEmail[emailKey(email)]
	var user session.User
	var hash string
	if ok {
		user, hash = acct.user, acct.hash
	}
	s.mu.RUnlock()
	if !ok {
		return session.User{}, false
	}

	match, err := s.hasher.Verify(pass, hash)
	if err != nil {
		s.logger.Error("verify password hash", "user_id", user.ID, "err", err)
		return session.User{}, false
	}
	return user, match
}

func (s *Server) recordFailure(ctx context.Context, email, ip string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, email, ip); err != nil {
		s.logger.Warn("record failed login", "err", err)
	}
}

func (s *Server) touchLastLogin(id string) session.User {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.byID[id]
	acct.user.LastLogin = &now
	return acct.user
}

func (s *Server) bearerClaims(r *http.Request) (*token.AccessClaims, bool) {
	raw, ok := bearer(r)
	if !ok {
		return nil, false
	}
	claims, err := s.issuer.ParseAccess(raw)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	_, revoked := s.revoked[claims.ID]
	s.mu.RUnlock()
	return claims, !revoked
}

func (s *Server) revoke(jti string, exp time.Time) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, until := range s.revoked {
		if !until.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = exp
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
