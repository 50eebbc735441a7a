// Package logging assembles structured slog loggers and formatting helpers used
// across vidshelf components.
//
// It owns the configurable console/JSON handlers, sends every record to stdout
// and the run log file, and exposes context-aware helpers so run code can automatically
// tag log lines with the run ID and video ID being processed. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
