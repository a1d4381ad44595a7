// Package tracing is a thin wrapper around OpenTelemetry so the scheduler
// can emit spans for behavior admission and execution without the rest of
// the code base importing the upstream packages. Applications that do not
// initialise an exporter get no-op spans.
package tracing
