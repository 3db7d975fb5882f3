// Package notifications pushes job outcomes to ntfy.
//
// The engine reports printed documents, documents moved to the failed folder
// for review, and archive problems that need manual cleanup. When no topic is
// configured the service is a no-op, so callers never branch on whether
// notifications are enabled.
package notifications
