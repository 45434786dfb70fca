// Package logging assembles the structured slog loggers shared by cfgd and
// cfgdbutil.
//
// It owns the console and JSON handlers, level parsing, output plumbing and
// the attribute helpers used across packages. A configured log file always
// receives JSON; the console format is chosen by configuration, with "auto"
// picking the human-readable form only when stdout is a terminal. NewNop
// gives tests and optional wiring a logger that cannot fail.
package logging
