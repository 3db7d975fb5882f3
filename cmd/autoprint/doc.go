// Package main hosts the autoprint CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, queries its
// status API, reads the history ledger, and offers offline helpers for
// classifying documents, previewing per-document print settings, and
// scaffolding configuration.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
