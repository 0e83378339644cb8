package versions_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"mergeversions/internal/media"
	"mergeversions/internal/versions"
)

func TestSplitMoviesSplitsEligibleItems(t *testing.T) {
	lib := newFakeLibrary(
		movie("a", "1", "lib", "/media/movies/a.mkv"),
		movie("b", "1", "lib", "/media/movies/b.mkv"),
		movie("k", "1", "lib", "/media/kids/k.mkv"),
	)
	ctx := context.Background()
	if err := lib.MergeVersions(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}
	orch := newOrchestrator(t, lib, staticExclusions{"/media/kids"}, 2)
	rec := &progressRecorder{}

	result, err := orch.SplitMovies(ctx, rec.report)
	if err != nil {
		t.Fatalf("split movies: %v", err)
	}
	splits := lib.splitCalls()
	sort.Strings(splits)
	if !reflect.DeepEqual(splits, []string{"a", "b"}) {
		t.Fatalf("split calls = %v, want [a b]", splits)
	}
	if result.Units != 2 || result.Applied != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, id := range []string{"a", "b"} {
		if st := lib.state(id); st.Role != media.RoleStandalone {
			t.Fatalf("state(%s) = %v, want standalone", id, st)
		}
	}
	assertProgressComplete(t, rec.snapshot())
}

func TestSplitEpisodesHonorsExclusions(t *testing.T) {
	lib := newFakeLibrary(
		episode("e1", "Show", "Season 1", "Pilot", 1, 2010, "/media/tv/e1.mkv"),
		episode("e2", "Show", "Season 1", "Pilot", 1, 2010, "/media/kids/e2.mkv"),
	)
	orch := newOrchestrator(t, lib, staticExclusions{"/media/kids"}, 1)

	if _, err := orch.SplitEpisodes(context.Background(), nil); err != nil {
		t.Fatalf("split episodes: %v", err)
	}
	if got := lib.splitCalls(); !reflect.DeepEqual(got, []string{"e1"}) {
		t.Fatalf("split calls = %v, want [e1]", got)
	}
}

func TestSplitWithoutAlternatesIsNoop(t *testing.T) {
	lib := newFakeLibrary(movie("solo", "9", "lib", "/media/movies/solo.mkv"))
	orch := newOrchestrator(t, lib, nil, 1)

	result, err := orch.SplitMovies(context.Background(), nil)
	if err != nil {
		t.Fatalf("split movies: %v", err)
	}
	if result.Failed != 0 || result.Applied != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if st := lib.state("solo"); st.Role != media.RoleStandalone {
		t.Fatalf("state(solo) = %v", st)
	}
}

func TestSplitEmptyLibraryReportsCompletion(t *testing.T) {
	orch := newOrchestrator(t, newFakeLibrary(), nil, 1)
	rec := &progressRecorder{}
	result, err := orch.SplitEpisodes(context.Background(), rec.report)
	if err != nil {
		t.Fatalf("split episodes: %v", err)
	}
	if got := rec.snapshot(); !reflect.DeepEqual(got, []float64{100}) {
		t.Fatalf("progress = %v, want [100]", got)
	}
	if result.Units != 0 {
		t.Fatalf("units = %d, want 0", result.Units)
	}
}

func TestMergeThenSplitRestoresStandalone(t *testing.T) {
	lib := newFakeLibrary(
		movie("a", "603", "lib", "/m/a.mkv"),
		movie("b", "603", "lib", "/m/b.mkv"),
	)
	orch := newOrchestrator(t, lib, nil, 2)
	ctx := context.Background()

	if _, err := orch.MergeMovies(ctx, nil); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := orch.SplitMovies(ctx, nil); err != nil {
		t.Fatalf("split: %v", err)
	}
	if _, err := orch.MergeMovies(ctx, nil); err != nil {
		t.Fatalf("re-merge: %v", err)
	}
	if calls := lib.mergeCalls(); len(calls) != 2 {
		t.Fatalf("expected merge to re-apply after split, got %v", calls)
	}
}

func TestSplitAllIsolatesFailures(t *testing.T) {
	var items []media.Item
	for i := range 5 {
		items = append(items, movie(fmt.Sprintf("m%d", i), fmt.Sprintf("%d", 200+i), "lib", fmt.Sprintf("/m/%d.mkv", i)))
	}
	lib := newFakeLibrary(items...)
	lib.splitErr["m1"] = errors.New("server returned 500")
	lib.splitHook = func(id string) {
		if id == "m3" {
			panic("unexpected nil")
		}
	}
	orch := newOrchestrator(t, lib, nil, 2)
	rec := &progressRecorder{}

	result, err := orch.SplitMovies(context.Background(), rec.report)
	if err != nil {
		t.Fatalf("split movies: %v", err)
	}
	if result.Units != 5 || result.Failed != 2 || result.Applied != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !errors.Is(result.Err(), versions.ErrBatchFailures) {
		t.Fatalf("expected ErrBatchFailures, got %v", result.Err())
	}
	if got := lib.splitCalls(); len(got) != 5 {
		t.Fatalf("expected every item attempted once, got %v", got)
	}
	values := rec.snapshot()
	if len(values) != 5 {
		t.Fatalf("expected a report per unit, got %v", values)
	}
	assertProgressComplete(t, values)
}

func TestSplitAllAnnotatesContextWithRunID(t *testing.T) {
	lib := newFakeLibrary(
		movie("a", "1", "lib", "/m/a.mkv"),
		movie("b", "2", "lib", "/m/b.mkv"),
	)
	orch := newOrchestrator(t, lib, nil, 2)

	result, err := orch.SplitMovies(context.Background(), nil)
	if err != nil {
		t.Fatalf("split movies: %v", err)
	}
	ids := lib.splitRunIDs()
	if len(ids) != 2 {
		t.Fatalf("expected run id on every split call, got %v", ids)
	}
	for _, id := range ids {
		if id != result.RunID {
			t.Fatalf("run id = %q, want %q", id, result.RunID)
		}
	}
}
