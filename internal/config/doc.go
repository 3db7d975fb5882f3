// Package config loads, normalizes, and validates autoprint configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUTOPRINT_PRINTER and GOTENBERG_URL. Archive folders default to PRINTED/,
// CONVERTED/ and FAILED/ beneath the intake directory; the watcher only scans
// the top level so those folders are never picked up again.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extensions, and clear validation errors.
package config
