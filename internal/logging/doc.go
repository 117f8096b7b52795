// Package logging assembles structured slog loggers and formatting helpers used
// across sipstructure.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so run code can tag log lines
// with the run id and current stage. Each run can tee its records into a
// dedicated JSON file next to the main log. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
