package opsauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/permission"
	"github.com/MrEthical07/opsauth/session"
	"github.com/MrEthical07/opsauth/token"
)

// Manager is the single source of truth for who is logged in.
type Manager struct {
	config     Config
	gateway    Gateway
	store      session.Store
	validator  token.Validator
	routes     *permission.RouteTable
	logger     *log.Logger
	metrics    *Metrics
	audit      *auditDispatcher
	now        func() time.Time
	ownedRedis redis.UniversalClient

	mu       sync.RWMutex
	current  *Session
	lastErr  string
	inFlight atomic.Int32
	closed   atomic.Bool
}

// Initialize restores the persisted session, if any.
//
// Nothing persisted leaves the Manager unauthenticated. A persisted token that
// fails the offline check, or that the server no longer accepts, is cleared
// from storage without surfacing an error. When the server cannot be reached
// the Manager stays unauthenticated, storage is left intact, and the gateway
// error is returned (errors.Is(err, gateway.ErrNetwork)). Storage read
// failures are returned wrapped in ErrStorage.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	rec, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		m.replace(nil)
		m.metrics.Inc(MetricRehydrateEmpty)
		return nil
	case errors.Is(err, session.ErrCorrupt):
		m.logger.Warn("discarding unreadable persisted session", "err", err)
		m.discardPersisted(ctx, "corrupt")
		return nil
	case err != nil:
		m.metrics.Inc(MetricStorageFailure)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := m.validator.Check(rec.Token, rec.ExpiresAt); err != nil {
		m.logger.Info("persisted session no longer usable", "reason", err)
		m.discardPersisted(ctx, err.Error())
		return nil
	}

	user, err := m.gateway.CurrentUser(ctx, rec.Token)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindNetwork {
			m.replace(nil)
			m.metrics.Inc(MetricRehydrateDeferred)
			m.logger.Warn("could not confirm persisted session", "err", err)
			return err
		}
		m.logger.Info("server rejected persisted session", "err", err)
		m.discardPersisted(ctx, "rejected")
		return nil
	}
	if !user.Active {
		m.logger.Info("persisted session belongs to an inactive account", "user_id", user.ID)
		m.discardPersisted(ctx, "inactive")
		return nil
	}

	restored := Session{Token: rec.Token, ExpiresAt: rec.ExpiresAt, User: user}
	if err := m.store.Save(ctx, restored.record()); err != nil {
		m.metrics.Inc(MetricStorageFailure)
		m.logger.Warn("could not refresh persisted user record", "err", err)
	}
	m.replace(&restored)
	m.metrics.Inc(MetricRehydrateSuccess)
	m.emit(ctx, AuditEvent{EventType: AuditRehydrate, UserID: user.ID, Role: user.Role, Success: true})
	m.logger.Debug("session restored", "user_id", user.ID, "role", user.Role)
	return nil
}

func (m *Manager) discardPersisted(ctx context.Context, reason string) {
	m.replace(nil)
	if err := m.store.Clear(ctx); err != nil {
		m.metrics.Inc(MetricStorageFailure)
		m.logger.Error("could not clear persisted session", "err", err)
	}
	m.metrics.Inc(MetricRehydrateRejected)
	m.emit(ctx, AuditEvent{EventType: AuditRehydrate, Success: false, Reason: reason})
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// User returns a copy of the logged-in user.
func (m *Manager) User() (*User, bool) {
	s, ok := m.Current()
	if !ok {
		return nil, false
	}
	return &s.User, true
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Current()
	return ok
}

// LoginInFlight reports whether a Login call is waiting on the server. UIs
// disable their login control while it is true; concurrent logins are not
// coalesced.
func (m *Manager) LoginInFlight() bool {
	return m.inFlight.Load() > 0
}

// LastError returns the user-facing message of the most recent failed Login
// or Register, or "" after a success.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// HasRole applies HasRole to the logged-in user.
func (m *Manager) HasRole(role Role) bool {
	user, _ := m.User()
	return HasRole(user, role)
}

// HasAnyRole applies HasAnyRole to the logged-in user.
func (m *Manager) HasAnyRole(roles ...Role) bool {
	user, _ := m.User()
	return HasAnyRole(user, roles...)
}

// CanAccessRoute decides route for the logged-in user with the Manager's
// route table.
func (m *Manager) CanAccessRoute(route string) bool {
	user, _ := m.User()
	return canAccess(m.routes, user, route)
}

// Routes returns the route table used by CanAccessRoute.
func (m *Manager) Routes() *permission.RouteTable {
	return m.routes
}

// Metrics returns the live counters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// MetricsSnapshot copies the current counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// RecordAccessDenied counts a guard refusal and emits an audit event.
func (m *Manager) RecordAccessDenied(ctx context.Context, user *User, route string) {
	m.metrics.Inc(MetricAccessDenied)
	event := AuditEvent{EventType: AuditAccessDenied, Metadata: map[string]string{"route": route}}
	if user != nil {
		event.UserID, event.Role = user.ID, user.Role
	}
	m.emit(ctx, event)
}

// Teardown drops the in-memory session, flushes audit events, and closes
// resources the Manager opened itself. Persisted state is kept so the next
// Initialize can restore it. Safe to call more than once.
func (m *Manager) Teardown() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.replace(nil)
	m.audit.Close()
	if m.ownedRedis != nil {
		if err := m.ownedRedis.Close(); err != nil {
			m.logger.Warn("close redis client", "err", err)
		}
	}
}

func (m *Manager) replace(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}

func (m *Manager) emit(ctx context.Context, event AuditEvent) {
	m.audit.Emit(ctx, event)
}
