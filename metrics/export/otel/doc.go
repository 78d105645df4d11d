// Package otel publishes a console's session state and counters through
// OpenTelemetry observable instruments.
//
// [NewExporter] registers one instrument per series described by
// internaldefs. Role and histogram-bucket labels become attributes. A single
// callback reads the Manager on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
