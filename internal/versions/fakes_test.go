package versions_test

import (
	"context"
	"errors"
	"sync"

	"mergeversions/internal/media"
	"mergeversions/internal/services"
)

// fakeLibrary is an in-memory index that applies merges and splits to its own
// item states, so repeated batches observe earlier mutations.
type fakeLibrary struct {
	mu        sync.Mutex
	items     []media.Item
	primaryOf map[string]string
	merges    [][]string
	splits    []string
	queries   []media.Query
	queryErr  error
	mergeErr  map[string]error
	mergeHook func(ids []string)
	splitErr  map[string]error
	splitHook func(id string)
	runIDs    []string
}

func newFakeLibrary(items ...media.Item) *fakeLibrary {
	return &fakeLibrary{
		items:     items,
		primaryOf: map[string]string{},
		mergeErr:  map[string]error{},
		splitErr:  map[string]error{},
	}
}

func (f *fakeLibrary) Query(_ context.Context, q media.Query) ([]media.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []media.Item
	for _, item := range f.items {
		if item.Kind != q.Kind {
			continue
		}
		if q.ExcludeVirtual && item.Virtual {
			continue
		}
		if q.RequireExternalID && item.TmdbID() == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeLibrary) MergeVersions(_ context.Context, ids []string) error {
	if f.mergeHook != nil {
		f.mergeHook(ids)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges = append(f.merges, append([]string(nil), ids...))
	if err := f.mergeErr[ids[0]]; err != nil {
		return err
	}
	primary := ids[0]
	for _, id := range ids[1:] {
		f.primaryOf[id] = primary
		f.setState(id, media.MergeState{Role: media.RoleAlternate})
	}
	f.setState(primary, media.MergeState{Role: media.RolePrimary, LinkedAlternateCount: len(ids) - 1})
	return nil
}

func (f *fakeLibrary) SplitVersions(ctx context.Context, id string) error {
	f.mu.Lock()
	f.splits = append(f.splits, id)
	if runID, ok := services.RunIDFromContext(ctx); ok {
		f.runIDs = append(f.runIDs, runID)
	}
	f.mu.Unlock()
	if f.splitHook != nil {
		f.splitHook(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.splitErr[id]; err != nil {
		return err
	}
	if _, ok := f.index(id); !ok {
		return errors.New("item not found")
	}
	primary := id
	if p, ok := f.primaryOf[id]; ok {
		primary = p
	}
	linked := false
	for alt, p := range f.primaryOf {
		if p == primary {
			delete(f.primaryOf, alt)
			f.setState(alt, media.MergeState{Role: media.RoleStandalone})
			linked = true
		}
	}
	if linked {
		f.setState(primary, media.MergeState{Role: media.RoleStandalone})
	}
	return nil
}

func (f *fakeLibrary) index(id string) (int, bool) {
	for i, item := range f.items {
		if item.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (f *fakeLibrary) setState(id string, state media.MergeState) {
	if i, ok := f.index(id); ok {
		f.items[i].State = state
	}
}

func (f *fakeLibrary) state(id string) media.MergeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.index(id); ok {
		return f.items[i].State
	}
	return media.MergeState{}
}

func (f *fakeLibrary) mergeCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.merges...)
}

func (f *fakeLibrary) splitRunIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runIDs...)
}

func (f *fakeLibrary) splitCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.splits...)
}

type staticExclusions []string

func (s staticExclusions) ExcludedLocations() []string { return s }

// liveExclusions can change between reads.
type liveExclusions struct {
	mu    sync.Mutex
	paths []string
	reads int
}

func (l *liveExclusions) ExcludedLocations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	return append([]string(nil), l.paths...)
}

func (l *liveExclusions) set(paths ...string) {
	l.mu.Lock()
	l.paths = paths
	l.mu.Unlock()
}

type progressRecorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *progressRecorder) report(percent float64) {
	r.mu.Lock()
	r.values = append(r.values, percent)
	r.mu.Unlock()
}

func (r *progressRecorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

func movie(id, tmdb, parent, path string) media.Item {
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

func episode(id, series, season, name string, index, year int, path string) media.Item {
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
