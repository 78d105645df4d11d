// Package internaldefs turns a Manager's counters and live session state into
// exporter-neutral metric families, so the Prometheus and OTel exporters
// publish identical series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
