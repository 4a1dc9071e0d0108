// Package logging assembles structured slog loggers and formatting helpers used
// across the concierge daemon and CLI.
//
// It owns the console/JSON handlers, level and output plumbing, per-queue log
// files, and context-aware helpers that tag lines with queue IDs, guest IDs,
// and correlation IDs. NewNop provides a silent logger for tests.
package logging
