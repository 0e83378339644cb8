package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mergeversions/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("JELLYFIN_URL", "http://jellyfin.local:8096/")
	t.Setenv("JELLYFIN_API_KEY", " test-key ")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "mergeversions")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.SQLite.Path != filepath.Join(wantState, "library.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.SQLite.Path)
	}
	if cfg.Jellyfin.URL != "http://jellyfin.local:8096" {
		t.Fatalf("expected trailing slash trimmed from env url, got %q", cfg.Jellyfin.URL)
	}
	if cfg.Jellyfin.APIKey != "test-key" {
		t.Fatalf("expected api key from env, got %q", cfg.Jellyfin.APIKey)
	}
	if cfg.Library.Backend != config.BackendJellyfin {
		t.Fatalf("unexpected backend: %q", cfg.Library.Backend)
	}
	if cfg.Library.Workers != runtime.NumCPU() {
		t.Fatalf("expected workers to default to NumCPU, got %d", cfg.Library.Workers)
	}
	if cfg.Jellyfin.PageSize != config.Default().Jellyfin.PageSize {
		t.Fatalf("unexpected page size: %d", cfg.Jellyfin.PageSize)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.LockPath() != filepath.Join(wantState, "mergeversions.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomPathNormalizesExclusions(t *testing.T) {
	t.Setenv("JELLYFIN_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mergeversions.toml")

	type payload struct {
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Library struct {
			Backend           string   `toml:"backend"`
			LocationsExcluded []string `toml:"locations_excluded"`
			Workers           int      `toml:"workers"`
		} `toml:"library"`
	}
	custom := payload{}
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Library.Backend = " SQLite "
	custom.Library.LocationsExcluded = []string{"/media/extras", " ", "/media/extras", " /media/kids "}
	custom.Library.Workers = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Library.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Library.Backend)
	}
	if cfg.Library.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Library.Workers)
	}
	got := cfg.Library.ExcludedLocations()
	want := []string{"/media/extras", "/media/kids"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected exclusions: got %v want %v", got, want)
	}
	got[0] = "mutated"
	if cfg.Library.LocationsExcluded[0] != "/media/extras" {
		t.Fatal("expected ExcludedLocations to return a copy")
	}
	if cfg.SQLite.Path != filepath.Join(tempDir, "state", "library.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.SQLite.Path)
	}
}

func TestValidateRejectsJellyfinWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Jellyfin.URL = "http://localhost:8096"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jellyfin.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}

	cfg.Jellyfin.URL = ""
	cfg.Jellyfin.APIKey = "key"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jellyfin.url") {
		t.Fatalf("expected url error, got %v", err)
	}

	cfg.Library.Backend = config.BackendSQLite
	cfg.SQLite.Path = "/tmp/library.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite backend should not require jellyfin credentials: %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Library.Backend = "plex"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "library.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("JELLYFIN_API_KEY", "from-env")
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Jellyfin.URL != "http://localhost:8096" {
		t.Fatalf("unexpected sample url: %q", cfg.Jellyfin.URL)
	}
	if cfg.Jellyfin.APIKey != "from-env" {
		t.Fatalf("expected env api key fallback, got %q", cfg.Jellyfin.APIKey)
	}
}

func TestLoadNormalizesNotificationsAndRetries(t *testing.T) {
	t.Setenv("JELLYFIN_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mergeversions.toml")
	content := `[paths]
state_dir = "` + filepath.ToSlash(filepath.Join(tempDir, "state")) + `"

[library]
backend = "sqlite"

[jellyfin]
retries = -4

[notifications]
ntfy_topic = "  https://ntfy.example/topic  "
min_units = -1

[logging]
max_size_mb = 0
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Jellyfin.Retries != 0 {
		t.Fatalf("expected negative retries clamped to 0, got %d", cfg.Jellyfin.Retries)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("unexpected topic: %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.MinUnits != 0 || !cfg.Notifications.Batches || cfg.Notifications.RequestTimeout != 10 {
		t.Fatalf("unexpected notifications: %+v", cfg.Notifications)
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Fatalf("expected default max size, got %d", cfg.Logging.MaxSizeMB)
	}
}

func TestValidateRejectsNegativeRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Library.Backend = config.BackendSQLite
	cfg.SQLite.Path = "/tmp/library.db"
	cfg.Jellyfin.MaxRequestsPerSecond = -1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "max_requests_per_second") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}
