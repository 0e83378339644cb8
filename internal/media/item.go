package media

import (
	"fmt"
	"strings"
)

// Kind identifies the type of library item.
type Kind string

const (
	KindMovie   Kind = "Movie"
	KindEpisode Kind = "Episode"
)

// ProviderTmdb is the provider id key for The Movie Database.
const ProviderTmdb = "Tmdb"

// ParseKind maps user input ("movies", "episode", ...) onto a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies":
		return KindMovie, nil
	case "episode", "episodes":
		return KindEpisode, nil
	default:
		return "", fmt.Errorf("unknown media kind %q (want movies or episodes)", value)
	}
}

// Plural returns the lower-case plural label used in logs and CLI output.
func (k Kind) Plural() string {
	switch k {
	case KindMovie:
		return "movies"
	case KindEpisode:
		return "episodes"
	default:
		return strings.ToLower(string(k))
	}
}

// Item is a node in the media library.
type Item struct {
	ID          string
	Kind        Kind
	Name        string
	Year        int // 0 when unknown
	Path        string
	ParentID    string
	ProviderIDs map[string]string
	Virtual     bool

	// Episode fields.
	SeriesName  string
	SeasonName  string
	IndexNumber *int

	// PrimaryVersionID names the primary this item is linked under, if any.
	PrimaryVersionID string
	State            MergeState
}

// ProviderID returns the trimmed external id for provider, or "".
func (i Item) ProviderID(provider string) string {
	if len(i.ProviderIDs) == 0 {
		return ""
	}
	if v, ok := i.ProviderIDs[provider]; ok {
		return strings.TrimSpace(v)
	}
	// Jellyfin is not consistent about provider key casing.
	for key, v := range i.ProviderIDs {
		if strings.EqualFold(key, provider) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// TmdbID returns the item's TMDb id, or "".
func (i Item) TmdbID() string {
	return i.ProviderID(ProviderTmdb)
}

// Label is a short human-readable description used in logs and tables.
func (i Item) Label() string {
	if i.Kind == KindEpisode {
		index := "?"
		if i.IndexNumber != nil {
			index = fmt.Sprintf("%d", *i.IndexNumber)
		}
		return fmt.Sprintf("%s / %s / %s. %s", i.SeriesName, i.SeasonName, index, i.Name)
	}
	if i.Year > 0 {
		return fmt.Sprintf("%s (%d)", i.Name, i.Year)
	}
	return i.Name
}

// IntPtr is a convenience for populating IndexNumber.
func IntPtr(v int) *int {
	return &v
}

// Query describes an index lookup.
type Query struct {
	Kind              Kind
	Recursive         bool
	ExcludeVirtual    bool
	RequireExternalID bool
}
