package config

import "runtime"

const (
	defaultConfigPath             = "~/.config/mergeversions/config.toml"
	defaultStateDir               = "~/.local/share/mergeversions"
	defaultLogDir                 = "~/.local/share/mergeversions/logs"
	defaultBackend                = BackendJellyfin
	defaultSQLiteFilename         = "library.db"
	defaultJellyfinPageSize       = 500
	defaultJellyfinRequestTimeout = 60
	defaultJellyfinRetries        = 2
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogMaxSizeMB           = 10
	defaultLogMaxBackups          = 5
	defaultLogRetentionDays       = 30
)

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Library: Library{
			Backend: defaultBackend,
			Workers: defaultWorkers(),
		},
		Jellyfin: Jellyfin{
			PageSize:       defaultJellyfinPageSize,
			RequestTimeout: defaultJellyfinRequestTimeout,
			Retries:        defaultJellyfinRetries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batches:        true,
			Errors:         true,
			MinUnits:       1,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
