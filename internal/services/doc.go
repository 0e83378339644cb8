// Package services defines shared utilities consumed by the library backends
// and the command layer.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that classify backend
//     failures (configuration, not found, transient) so the CLI can print a
//     useful hint.
//
// Backends wrap their failures with these markers so operational behaviour
// stays uniform whichever library server is in use.
package services
