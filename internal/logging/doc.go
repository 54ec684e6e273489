// Package logging assembles structured slog loggers and formatting helpers used
// across maskpack.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so every line written during a
// session carries the run identifier that also heads the run ledger. The
// package provides a no-op logger for tests and wiring code that cannot fail.
package logging
