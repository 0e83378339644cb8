// Package libstore keeps a library index in SQLite so version merges can be
// planned and applied without a live media server.
//
// The index mirrors the fields duplicate detection needs (provider ids,
// parent container, series/season/episode identity) plus a primary_version_id
// link per item. A snapshot taken from Jellyfin can be replayed here to
// preview a merge batch, and the same Store implements the
// orchestrator's query, merge, split, and merge-state capabilities so tests
// and offline runs exercise real persistence. Writes run in transactions
// retried on SQLITE_BUSY.
package libstore
