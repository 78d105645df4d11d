// Package gateway is the HTTP client for the authentication API.
//
// It is the only part of opsauth that performs authentication network I/O.
// Requests are sent once: no retries are attempted, and callers decide whether
// to prompt the user to try again.
//
// # Failure model
//
// Every method returns a *[Error] on failure. Its Kind separates transport
// failures ([KindNetwork]) from server refusals ([KindRejected]) and response
// bodies that do not have the expected shape ([KindMalformed]). Use errors.Is
// with [ErrNetwork], [ErrRejected], or [ErrMalformed] to branch.
//
// # What this package must NOT do
//
//   - Hold session state. Tokens are passed in per call.
//   - Log tokens or passwords.
package gateway
