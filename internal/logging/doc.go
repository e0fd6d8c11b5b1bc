// Package logging assembles structured slog loggers and formatting helpers used
// across the dataset pipeline.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes standardized field keys so the merger, accessors and the batch
// preprocessor tag log lines with the corpus, fold, mode and segment they are
// working on. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
