// Package prometheus renders a console's session state and counters in
// Prometheus text exposition format.
//
// [NewExporter] reads from an [opsauth.Manager] and serves the text through
// [Exporter.Handler]. Session gauges (opsauth_session_authenticated,
// opsauth_session_role, opsauth_login_in_flight) are always present; counters
// and the opsauth_gateway_latency_seconds histogram follow the Manager's
// metrics configuration.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate manager state.
package prometheus
