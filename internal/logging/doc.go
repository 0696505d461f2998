// Package logging assembles structured slog loggers and formatting helpers used
// across the bespoke tools.
//
// It owns the console and JSON handlers, fans records out to several sinks
// (including the systemd journal when enabled), and exposes context-aware
// helpers so pipeline code can tag log lines with run IDs, stages, and source
// keys. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Logs go to stderr by default: the document tool writes its output document
// to stdout.
package logging
