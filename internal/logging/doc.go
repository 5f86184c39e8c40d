// Package logging assembles structured slog loggers and formatting helpers used
// across dockhand.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so transport code can tag every line
// belonging to one daemon request with the same correlation ID. The package
// also provides a no-op logger for tests and for callers that pass no logger.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
