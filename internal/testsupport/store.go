package testsupport

import (
	"context"
	"testing"

	"mergeversions/internal/config"
	"mergeversions/internal/libstore"
	"mergeversions/internal/media"
)

// MustOpenStore opens a libstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *libstore.Store {
	t.Helper()

	store, err := libstore.Open(cfg)
	if err != nil {
		t.Fatalf("libstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Seed writes items into the store.
func Seed(t testing.TB, store *libstore.Store, items ...media.Item) {
	t.Helper()

	if err := store.Upsert(context.Background(), items); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
}

// Movie builds a movie item with a TMDb id.
func Movie(id, tmdb, parent, path string) media.Item {
	item := media.Item{
		ID:       id,
		Kind:     media.KindMovie,
		Name:     "Movie " + tmdb,
		Year:     2001,
		Path:     path,
		ParentID: parent,
	}
	if tmdb != "" {
		item.ProviderIDs = map[string]string{media.ProviderTmdb: tmdb}
	}
	return item
}

// Episode builds an episode item.
func Episode(id, series, season, name string, index, year int, path string) media.Item {
	return media.Item{
		ID:          id,
		Kind:        media.KindEpisode,
		Name:        name,
		Year:        year,
		Path:        path,
		SeriesName:  series,
		SeasonName:  season,
		IndexNumber: media.IntPtr(index),
	}
}
