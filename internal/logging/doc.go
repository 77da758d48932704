// Package logging assembles structured slog loggers and formatting helpers used
// across mediaconv.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so strategy code can tag log
// lines with job IDs and stage names. Components obtain their named channel
// (observer, converter, dispatcher) through NewComponentLogger. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
