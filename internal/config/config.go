package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// Watcher configuration
	Watcher WatcherConfig `toml:"watcher" yaml:"watcher"`

	// Store plugin configuration
	Store StoreConfig `toml:"store" yaml:"store"`

	// Filesystem plugin configuration
	FS FSConfig `toml:"fs" yaml:"fs"`

	// Notification plugin configuration
	Notification NotificationConfig `toml:"notification" yaml:"notification"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon" yaml:"daemon"`

	// Web bridge configuration
	Web WebConfig `toml:"web" yaml:"web"`

	// Logging configuration
	Log LogConfig `toml:"log" yaml:"log"`
}

// WatcherConfig holds active-window sampling configuration
type WatcherConfig struct {
	PollInterval    Duration `toml:"poll_interval" yaml:"poll_interval"`
	MinPollInterval Duration `toml:"-" yaml:"-"`
	MaxPollInterval Duration `toml:"-" yaml:"-"`
}

// StoreConfig holds key-value store configuration
type StoreConfig struct {
	Path string `toml:"path" yaml:"path"` // Path to SQLite database file
}

// FSConfig holds filesystem plugin configuration
type FSConfig struct {
	BaseDir string `toml:"base_dir" yaml:"base_dir"` // All fs plugin paths resolve under this directory
}

// NotificationConfig holds notification plugin configuration
type NotificationConfig struct {
	AppName string `toml:"app_name" yaml:"app_name"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file" yaml:"pid_file"`
	LogFile string `toml:"log_file" yaml:"log_file"`
}

// WebConfig holds UI bridge configuration
type WebConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

// Default returns a Config with sensible default values
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Watcher: WatcherConfig{
			PollInterval:    Duration(time.Second),
			MinPollInterval: Duration(100 * time.Millisecond),
			MaxPollInterval: Duration(60 * time.Second),
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "store.db"),
		},
		FS: FSConfig{
			BaseDir: filepath.Join(dataDir, "files"),
		},
		Notification: NotificationConfig{
			AppName: "driftshell",
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/driftshell-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/driftshell-%d.log", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 17000 + os.Getuid()%10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "driftshell")
	}
	return filepath.Join(os.TempDir(), "driftshell")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Watcher.PollInterval < c.Watcher.MinPollInterval {
		return errors.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Watcher.PollInterval, c.Watcher.MinPollInterval)
	}

	if c.Watcher.PollInterval > c.Watcher.MaxPollInterval {
		return errors.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Watcher.PollInterval, c.Watcher.MaxPollInterval)
	}

	if c.Store.Path == "" {
		return errors.New("store path cannot be empty")
	}

	if c.FS.BaseDir == "" {
		return errors.New("fs base dir cannot be empty")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return errors.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return errors.New("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return errors.New("PID file path cannot be empty")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if Duration(interval) < c.Watcher.MinPollInterval {
		return errors.Errorf("poll interval cannot be less than %v", c.Watcher.MinPollInterval)
	}
	if Duration(interval) > c.Watcher.MaxPollInterval {
		return errors.Errorf("poll interval cannot be greater than %v", c.Watcher.MaxPollInterval)
	}
	c.Watcher.PollInterval = Duration(interval)
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Address returns the host:port of the UI bridge
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Watcher:
    Poll Interval: %v
  Store:
    Path: %s
  FS:
    Base Dir: %s
  Daemon:
    PID File: %s
    Log File: %s
  Web:
    Host: %s
    Port: %d
  Log:
    Level: %s
    Format: %s`,
		c.Watcher.PollInterval,
		c.Store.Path,
		c.FS.BaseDir,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Web.Host,
		c.Web.Port,
		c.Log.Level,
		c.Log.Format,
	)
}
