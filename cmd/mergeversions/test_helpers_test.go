package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mergeversions/internal/config"
	"mergeversions/internal/libstore"
	"mergeversions/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *libstore.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvFromConfig(t, testsupport.NewConfig(t, opts...))
}

func setupCLITestEnvFromConfig(t *testing.T, cfg *config.Config) *cliTestEnv {
	t.Helper()

	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("JELLYFIN_API_KEY", "")
	t.Setenv("JELLYFIN_URL", "")

	configPath := filepath.Join(homeDir, ".config", "mergeversions", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	quoted := make([]string, len(cfg.Library.LocationsExcluded))
	for i, loc := range cfg.Library.LocationsExcluded {
		quoted[i] = fmt.Sprintf("%q", loc)
	}
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[library]
backend = %q
workers = %d
locations_excluded = [%s]

[jellyfin]
url = %q
api_key = %q

[sqlite]
path = %q

[notifications]
ntfy_topic = %q
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Library.Backend,
		cfg.Library.Workers,
		strings.Join(quoted, ", "),
		cfg.Jellyfin.URL,
		cfg.Jellyfin.APIKey,
		cfg.SQLite.Path,
		cfg.Notifications.NtfyTopic,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
