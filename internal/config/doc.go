// Package config loads, normalizes, and validates the mergeversions TOML
// configuration.
//
// Load resolves the config file from an explicit path, the user config
// directory, or the working directory, layers it over Default, expands "~"
// paths, applies environment fallbacks (JELLYFIN_URL, JELLYFIN_API_KEY), and
// rejects settings the selected library backend cannot run with. The Library
// section doubles as the exclusion source consulted by the version
// orchestrator.
package config
