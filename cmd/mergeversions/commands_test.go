package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mergeversions/internal/libstore"
	"mergeversions/internal/media"
	"mergeversions/internal/runlock"
	"mergeversions/internal/testsupport"
)

func TestMergeMoviesCommandIsIdempotent(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithExclusions("/media/kids"))
	testsupport.Seed(t, env.store,
		testsupport.Movie("a", "603", "lib", "/media/movies/a.mkv"),
		testsupport.Movie("b", "603", "lib", "/media/movies/b.mkv"),
		testsupport.Movie("k", "603", "lib", "/media/kids/k.mkv"),
	)

	out, _, err := runCLI(t, []string{"merge", "movies"}, env.configPath)
	if err != nil {
		t.Fatalf("merge movies: %v", err)
	}
	requireContains(t, out, "Applied")

	state, err := env.store.MergeState(context.Background(), media.Item{ID: "a"})
	if err != nil {
		t.Fatalf("merge state: %v", err)
	}
	if state.Role != media.RolePrimary || state.LinkedAlternateCount != 1 {
		t.Fatalf("state(a) = %v", state)
	}

	if _, _, err := runCLI(t, []string{"merge", "movies"}, env.configPath); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	state, err = env.store.MergeState(context.Background(), media.Item{ID: "a"})
	if err != nil {
		t.Fatalf("merge state: %v", err)
	}
	if state.LinkedAlternateCount != 1 {
		t.Fatalf("second merge changed links: %v", state)
	}
}

func TestSplitEpisodesCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Seed(t, env.store,
		testsupport.Episode("e1", "Show", "Season 1", "Pilot", 1, 2010, "/tv/a/e1.mkv"),
		testsupport.Episode("e2", "Show", "Season 1", "Pilot", 1, 2010, "/tv/b/e2.mkv"),
	)
	if err := env.store.MergeVersions(context.Background(), []string{"e1", "e2"}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	out, _, err := runCLI(t, []string{"split", "episodes", "--workers", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("split episodes: %v", err)
	}
	requireContains(t, out, "Items")

	state, err := env.store.MergeState(context.Background(), media.Item{ID: "e1"})
	if err != nil {
		t.Fatalf("merge state: %v", err)
	}
	if state.Role != media.RoleStandalone {
		t.Fatalf("state(e1) = %v, want standalone", state)
	}
}

func TestBatchRejectsUnknownKind(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"merge", "songs"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBatchFailsWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"merge", "movies"}, env.configPath)
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestGroupsCommandPreviewsWithoutMerging(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Seed(t, env.store,
		testsupport.Movie("a", "603", "lib", "/media/movies/a.mkv"),
		testsupport.Movie("b", "603", "lib", "/media/movies/b.mkv"),
	)

	out, _, err := runCLI(t, []string{"groups", "movies"}, env.configPath)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	requireContains(t, out, "tmdb=603 parent=lib")
	requireContains(t, out, "1 of 1 groups would be merged")

	out, _, err = runCLI(t, []string{"groups", "movies", "--members"}, env.configPath)
	if err != nil {
		t.Fatalf("groups --members: %v", err)
	}
	requireContains(t, out, "/media/movies/b.mkv")

	state, err := env.store.MergeState(context.Background(), media.Item{ID: "a"})
	if err != nil {
		t.Fatalf("merge state: %v", err)
	}
	if state.Role != media.RoleStandalone {
		t.Fatalf("groups must not merge, state(a) = %v", state)
	}
}

func TestGroupsCommandEmptyLibrary(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"groups", "episodes"}, env.configPath)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	requireContains(t, out, "No duplicate episodes found")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Library index")
	requireContains(t, out, "State directory")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Backend: sqlite")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestSnapshotCopiesJellyfinIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Items" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("IncludeItemTypes") {
		case "Movie":
			_, _ = w.Write([]byte(`{"TotalRecordCount":2,"Items":[
				{"Id":"m1","Name":"Heat","Type":"Movie","ProductionYear":1995,"Path":"/m/1.mkv","ParentId":"lib","ProviderIds":{"Tmdb":"949"},"MediaSourceCount":2},
				{"Id":"m2","Name":"Heat","Type":"Movie","ProductionYear":1995,"Path":"/m/2.mkv","ParentId":"lib","ProviderIds":{"Tmdb":"949"},"PrimaryVersionId":"m1"}]}`))
		default:
			_, _ = w.Write([]byte(`{"TotalRecordCount":0,"Items":[]}`))
		}
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithJellyfin(srv.URL, "key"))
	target := filepath.Join(env.baseDir, "snapshot.db")

	out, _, err := runCLI(t, []string{"snapshot", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, "Snapshot written to")

	store, err := libstore.OpenPath(target)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer store.Close()
	state, err := store.MergeState(context.Background(), media.Item{ID: "m1"})
	if err != nil {
		t.Fatalf("merge state: %v", err)
	}
	if state.Role != media.RolePrimary || state.LinkedAlternateCount != 1 {
		t.Fatalf("state(m1) = %v", state)
	}
}

func TestMergeCommandPublishesBatchNotification(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
	}))
	defer ntfy.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ntfy.URL
	env := setupCLITestEnvFromConfig(t, cfg)
	testsupport.Seed(t, env.store,
		testsupport.Movie("a", "603", "lib", "/media/movies/a.mkv"),
		testsupport.Movie("b", "603", "lib", "/media/movies/b.mkv"),
	)

	if _, _, err := runCLI(t, []string{"merge", "movies"}, env.configPath); err != nil {
		t.Fatalf("merge movies: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || !strings.HasPrefix(bodies[0], "merge movies: 1 applied") {
		t.Fatalf("unexpected notifications: %q", bodies)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notification not sent")
}
