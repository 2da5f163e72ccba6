// Package logging assembles structured slog loggers and formatting helpers used
// across hiksync.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so sync code can automatically
// tag log lines with the run ID and camera being processed. The package also
// provides a no-op logger for tests and log-file retention for the per-run
// log files written under paths.log_dir.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
