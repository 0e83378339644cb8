package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mergeversions/internal/config"
	"mergeversions/internal/libstore"
	"mergeversions/internal/logging"
	"mergeversions/internal/media"
	"mergeversions/internal/services/jellyfin"
	"mergeversions/internal/versions"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfigWriter(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, nil
}

// openLibrary returns the configured backend and a function that releases it.
func (c *commandContext) openLibrary(cfg *config.Config, logger *slog.Logger) (versions.Library, func(), error) {
	switch cfg.Library.Backend {
	case config.BackendSQLite:
		store, err := libstore.Open(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open library index: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendJellyfin:
		client, err := jellyfin.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported library backend %q", cfg.Library.Backend)
	}
}

func newOrchestrator(cfg *config.Config, lib versions.Library, logger *slog.Logger, workers int) (*versions.Orchestrator, error) {
	if workers <= 0 {
		workers = cfg.Library.Workers
	}
	return versions.New(versions.DepsFor(lib, &cfg.Library, logger), versions.Options{Workers: workers})
}

func parseKindArg(args []string) (media.Kind, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected one of: movies, episodes")
	}
	return media.ParseKind(args[0])
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
