// Package daemon coordinates the long-running autoprint process.
//
// It wires the intake watcher, override store, link monitor and engine into a
// single lifecycle with flock-based locking to prevent multiple instances, and
// serves the engine snapshot, a health probe and Prometheus metrics over HTTP.
//
// Keep orchestration logic here: job handling lives in the engine while the
// daemon focuses on startup, shutdown, and high level coordination.
package daemon
