// Package jellyfin talks to a Jellyfin server's HTTP API on behalf of the
// version merge orchestrator.
//
// Client pages through /Items to build the duplicate candidate list, derives
// each item's merge state from MediaSourceCount and PrimaryVersionId, and calls
// /Videos/MergeVersions and /Videos/{id}/AlternateSources to link and unlink
// versions. Requests authenticate with the X-Emby-Token header. Non-2xx
// responses come back as *StatusError wrapped with a services marker so callers
// can tell configuration problems from transient ones.
package jellyfin
