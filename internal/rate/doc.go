// Package rate throttles failed logins against the stub authentication API
// with Redis fixed-window counters.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key prefixes:
//   - <prefix>:lf:  failed logins per email
//   - <prefix>:lfi: failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide what a failed login is. Callers report failures explicitly.
//   - Be imported outside the opsauth module.
package rate
