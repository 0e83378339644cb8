// Package media defines the library item model shared by the version
// orchestrator and its backends.
//
// Items are owned by an external index (Jellyfin or the local SQLite store);
// this package only describes their shape, their merge state, and the query
// used to fetch them. Nothing here performs I/O.
package media
