// Package services defines shared utilities consumed by the engine and the
// external collaborator clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, source paths, pipeline stages, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the Classify/Kind
//     functions that turn collaborator failures into retry decisions.
//
// Collaborator clients live in subpackages (gotenberg, cups) and report
// failures through these markers so the engine can trust their classification.
package services
