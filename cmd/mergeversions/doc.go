// Package main hosts the mergeversions CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration, opens the configured
// library backend (a Jellyfin server or a local SQLite index), and hands the
// narrow capabilities to the versions orchestrator. Batch commands take the
// run lock and run preflight checks before mutating anything.
package main
