// Package bootstrap runs the linetally task inside a small lifecycle:
// config validation and logger setup, start hooks (OpenTelemetry when
// enabled), the task itself under a SIGINT/SIGTERM-cancelled context, and
// stop hooks that flush telemetry.
package bootstrap
