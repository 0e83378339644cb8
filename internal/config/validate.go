package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateSQLite(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	switch c.Library.Backend {
	case BackendJellyfin, BackendSQLite:
	default:
		return fmt.Errorf("library.backend must be %q or %q, got %q", BackendJellyfin, BackendSQLite, c.Library.Backend)
	}
	if c.Library.Workers < 1 {
		return errors.New("library.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if c.Jellyfin.PageSize <= 0 {
		return errors.New("jellyfin.page_size must be positive")
	}
	if c.Jellyfin.RequestTimeout <= 0 {
		return errors.New("jellyfin.request_timeout must be positive (seconds)")
	}
	if c.Jellyfin.MaxRequestsPerSecond < 0 {
		return errors.New("jellyfin.max_requests_per_second must not be negative")
	}
	if c.Library.Backend != BackendJellyfin {
		return nil
	}
	if strings.TrimSpace(c.Jellyfin.URL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("jellyfin.url is required for the jellyfin backend. Set JELLYFIN_URL or edit %s (create with 'mergeversions config init')", defaultPath)
	}
	if strings.TrimSpace(c.Jellyfin.APIKey) == "" {
		return errors.New("jellyfin.api_key is required for the jellyfin backend (or set JELLYFIN_API_KEY)")
	}
	return nil
}

func (c *Config) validateSQLite() error {
	if c.Library.Backend == BackendSQLite && strings.TrimSpace(c.SQLite.Path) == "" {
		return errors.New("sqlite.path must be set when library.backend is sqlite")
	}
	return nil
}
