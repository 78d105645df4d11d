package opsauth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/session"
)

// Login authenticates against the server and, on success, replaces the
// session in memory and in storage. A replaced session's token is revoked on
// the server, best effort. Failures leave any existing session
// untouched and set LastError to a message fit for display.
func (m *Manager) Login(ctx context.Context, email, password string) bool {
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	if m.closed.Load() {
		m.setLastError(MessageClosed)
		return false
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.loginFailed(ctx, MetricLoginFailure, MessageInvalidCredentials, "empty credentials")
		return false
	}

	res, err := m.gateway.Login(ctx, gateway.Credentials{Email: email, Password: password})
	if err != nil {
		if gateway.KindOf(err) == gateway.KindNetwork {
			m.logger.Warn("login could not reach server", "err", err)
			m.loginFailed(ctx, MetricLoginNetworkError, MessageConnection, "network")
			return false
		}
		m.logger.Debug("login rejected", "err", err)
		m.loginFailed(ctx, MetricLoginFailure, MessageInvalidCredentials, gateway.KindOf(err).String())
		return false
	}

	if !res.User.Active {
		m.revoke(ctx, res.Token)
		m.loginFailed(ctx, MetricLoginFailure, MessageInvalidCredentials, "inactive")
		return false
	}
	if err := m.validator.Check(res.Token, res.ExpiresAt); err != nil {
		m.logger.Warn("server issued an unusable token", "reason", err)
		m.loginFailed(ctx, MetricLoginFailure, MessageInvalidCredentials, "unusable token")
		return false
	}

	next := Session{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User}
	if err := m.store.Save(ctx, next.record()); err != nil {
		m.metrics.Inc(MetricStorageFailure)
		m.logger.Error("could not persist session", "err", err)
		m.revoke(ctx, res.Token)
		m.loginFailed(ctx, MetricLoginFailure, MessageStorage, "storage")
		return false
	}

	m.mu.Lock()
	prev := m.current
	m.current = &next
	m.lastErr = ""
	m.mu.Unlock()

	if prev != nil && prev.Token != next.Token {
		m.revoke(ctx, prev.Token)
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, AuditEvent{EventType: AuditLogin, UserID: next.User.ID, Role: next.User.Role, Success: true})
	m.logger.Info("logged in", "user_id", next.User.ID, "role", next.User.Role)
	return true
}

func (m *Manager) loginFailed(ctx context.Context, id MetricID, message, reason string) {
	m.setLastError(message)
	m.metrics.Inc(id)
	m.emit(ctx, AuditEvent{EventType: AuditLogin, Success: false, Reason: reason})
}

// Logout ends the session. The server is asked to revoke the token but its
// answer is only logged: memory and storage are cleared regardless. Calling
// Logout without a session is a no-op apart from clearing storage.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	tok := ""
	var userID string
	var role Role
	if prev != nil {
		tok, userID, role = prev.Token, prev.User.ID, prev.User.Role
	} else if rec, err := m.store.Load(ctx); err == nil {
		// A session kept on disk after an offline startup is still revoked.
		tok = rec.Token
	} else if !errors.Is(err, session.ErrNotFound) {
		m.logger.Debug("no persisted session to revoke", "err", err)
	}

	if tok != "" {
		m.revoke(ctx, tok)
	}
	if err := m.store.Clear(ctx); err != nil {
		m.metrics.Inc(MetricStorageFailure)
		m.logger.Error("could not clear persisted session", "err", err)
	}

	m.metrics.Inc(MetricLogout)
	if tok != "" {
		m.emit(ctx, AuditEvent{EventType: AuditLogout, UserID: userID, Role: role, Success: true})
	}
}

func (m *Manager) revoke(ctx context.Context, tok string) {
	if err := m.gateway.Logout(ctx, tok); err != nil {
		m.metrics.Inc(MetricLogoutRemoteFailure)
		m.logger.Warn("server logout failed", "err", err)
	}
}

// Register creates a passenger account. Whatever role req carries, the
// request sent to the server asks for RolePassenger. Registering does not log
// in.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) bool {
	if m.closed.Load() {
		m.setLastError(MessageClosed)
		return false
	}

	if req.Role != "" && req.Role != RolePassenger {
		m.logger.Info("ignoring requested role on self-registration", "requested", req.Role)
	}
	newUser := gateway.NewUser{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Role:     RolePassenger,
	}

	err := m.gateway.Register(ctx, newUser)
	if err == nil {
		m.setLastError("")
		m.metrics.Inc(MetricRegisterSuccess)
		m.emit(ctx, AuditEvent{EventType: AuditRegister, Role: RolePassenger, Success: true})
		return true
	}

	msg := MessageRegistrationFailed
	var gwErr *gateway.Error
	switch {
	case gateway.KindOf(err) == gateway.KindNetwork:
		msg = MessageConnection
	case errors.As(err, &gwErr) && gwErr.Kind == gateway.KindRejected && gwErr.Message != "":
		msg = gwErr.Message
	}
	m.logger.Debug("registration failed", "err", err)
	m.setLastError(msg)
	m.metrics.Inc(MetricRegisterFailure)
	m.emit(ctx, AuditEvent{EventType: AuditRegister, Success: false, Reason: gateway.KindOf(err).String()})
	return false
}
