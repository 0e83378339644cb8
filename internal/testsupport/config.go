package testsupport

import (
	"path/filepath"
	"testing"

	"mergeversions/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It selects the sqlite backend and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Library.Backend = config.BackendSQLite
	cfgVal.Library.Workers = 2
	cfgVal.SQLite.Path = filepath.Join(base, "state", "library.db")
	cfgVal.Jellyfin.URL = ""
	cfgVal.Jellyfin.APIKey = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithExclusions sets the excluded location prefixes.
func WithExclusions(prefixes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.LocationsExcluded = prefixes
	}
}

// WithWorkers overrides the batch worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.Workers = n
	}
}

// WithJellyfin switches the config to the jellyfin backend at url.
func WithJellyfin(url, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.Backend = config.BackendJellyfin
		b.cfg.Jellyfin.URL = url
		b.cfg.Jellyfin.APIKey = apiKey
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
