// Package versions finds duplicate movies and episodes in a media library and
// merges them into a single item with multiple versions, or splits merged
// items apart again.
//
// A batch fetches one kind of item from the index, groups duplicates by an
// identity key (TMDb id plus parent folder for movies; series, season, name,
// index, and year for episodes), drops members that sit under an excluded
// location or already carry version links, and hands each remaining group to
// the merge primitive on a bounded worker pool. Groups are computed from one
// snapshot before any work is dispatched, so units never overlap. Progress is
// reported after every unit and always ends at 100.
//
// The package depends only on the narrow capability interfaces declared in
// versions.go; the Jellyfin and SQLite backends live elsewhere.
package versions
