// Package opsauth is the client-side session layer of the airline operations
// console: it owns who is logged in, persists that across restarts, and answers
// role and route authorization questions.
//
// A [Manager] is built once through [Builder.Build] and passed to whatever
// needs it. Manager methods are safe to call from multiple goroutines; session
// changes replace the whole session value, last write wins.
//
// # Architecture boundaries
//
// opsauth is the public surface. It exposes [Manager], [Builder], [Config], and
// value types ([Session], [User], [MetricsSnapshot], [AuditEvent]). Network I/O
// goes through the gateway package, persistence through session.Store, offline
// token checks through the token package, and authorization decisions through
// the permission package.
//
// # What this package must NOT do
//
//   - Keep package-level session state. Every session belongs to a Manager.
//   - Retry gateway calls on its own.
//   - Log tokens or passwords.
//   - Import any sub-package that re-imports opsauth (no import cycles).
package opsauth
