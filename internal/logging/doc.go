// Package logging assembles structured slog loggers and formatting helpers used
// across autoprint.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine code can tag log lines
// with job IDs, source paths, and pipeline stages automatically. The daemon
// logger writes the configured format to stdout and a JSON copy to the log
// directory. A no-op logger is provided for tests and wiring code.
package logging
