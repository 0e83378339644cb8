// Package logging assembles structured slog loggers and formatting helpers used
// across mergeversions.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standard field names (component, run_id, item_id,
// decision_*) that orchestration code tags its lines with. The package also
// provides a no-op logger for tests and wiring code that cannot fail, plus a
// progress sampler for log-based progress reporting.
package logging
