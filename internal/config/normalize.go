package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeJellyfin()
	if err := c.normalizeSQLite(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	c.Library.Backend = strings.ToLower(strings.TrimSpace(c.Library.Backend))
	if c.Library.Backend == "" {
		c.Library.Backend = defaultBackend
	}
	if c.Library.Workers <= 0 {
		c.Library.Workers = defaultWorkers()
	}
	if len(c.Library.LocationsExcluded) == 0 {
		return
	}
	// A blank prefix would exclude every item.
	locations := make([]string, 0, len(c.Library.LocationsExcluded))
	seen := make(map[string]struct{}, len(c.Library.LocationsExcluded))
	for _, location := range c.Library.LocationsExcluded {
		trimmed := strings.TrimSpace(location)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		locations = append(locations, trimmed)
	}
	c.Library.LocationsExcluded = locations
}

func (c *Config) normalizeJellyfin() {
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Jellyfin.URL == "" {
		if value, ok := os.LookupEnv("JELLYFIN_URL"); ok {
			c.Jellyfin.URL = value
		}
	}
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
	c.Jellyfin.UserID = strings.TrimSpace(c.Jellyfin.UserID)
	if c.Jellyfin.PageSize == 0 {
		c.Jellyfin.PageSize = defaultJellyfinPageSize
	}
	if c.Jellyfin.RequestTimeout == 0 {
		c.Jellyfin.RequestTimeout = defaultJellyfinRequestTimeout
	}
	if c.Jellyfin.Retries < 0 {
		c.Jellyfin.Retries = 0
	}
}

func (c *Config) normalizeSQLite() error {
	var err error
	if strings.TrimSpace(c.SQLite.Path) == "" {
		c.SQLite.Path = filepath.Join(c.Paths.StateDir, defaultSQLiteFilename)
	}
	if c.SQLite.Path, err = expandPath(strings.TrimSpace(c.SQLite.Path)); err != nil {
		return fmt.Errorf("sqlite.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.MinUnits < 0 {
		c.Notifications.MinUnits = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
