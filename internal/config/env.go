package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Watcher configuration
	if pollInterval := os.Getenv("DRIFTSHELL_POLL_INTERVAL"); pollInterval != "" {
		if interval, err := time.ParseDuration(pollInterval); err == nil {
			_ = cfg.SetPollInterval(interval)
		}
	}

	// Store configuration
	if dbPath := os.Getenv("DRIFTSHELL_STORE_PATH"); dbPath != "" {
		cfg.Store.Path = dbPath
	}

	// FS configuration
	if baseDir := os.Getenv("DRIFTSHELL_FS_BASE_DIR"); baseDir != "" {
		cfg.FS.BaseDir = baseDir
	}

	// Daemon configuration
	if pidFile := os.Getenv("DRIFTSHELL_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("DRIFTSHELL_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Web configuration
	if webHost := os.Getenv("DRIFTSHELL_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("DRIFTSHELL_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil {
			_ = cfg.SetWebPort(port)
		}
	}

	// Log configuration
	if level := os.Getenv("DRIFTSHELL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if format := os.Getenv("DRIFTSHELL_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
