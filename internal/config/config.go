// Package config loads devsync settings from devsync.yaml and the
// environment.
//
// Settings resolve in precedence order: environment variables (DEVSYNC_*
// prefix), then the config file, then built-in defaults. A missing config
// file is not an error; every setting has a usable default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the config file searched for in the workspace root.
const ConfigFileName = "devsync.yaml"

// Config holds all devsync settings.
type Config struct {
	// SyncRoot contains template_sets/ and styles/. Relative paths resolve
	// against the workspace root.
	SyncRoot string `mapstructure:"sync_root"`

	// WorkspaceRoot contains plugins/. Defaults to the directory the config
	// file was found in.
	WorkspaceRoot string `mapstructure:"workspace_root"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `mapstructure:"database_path"`

	// DebounceWindow suppresses repeat events for the same file.
	DebounceWindow time.Duration `mapstructure:"debounce_window"`

	// BatchWindow groups changes arriving close together into one flush.
	BatchWindow time.Duration `mapstructure:"batch_window"`

	// CacheTTL bounds set/theme name resolution caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig holds log output settings.
type LogConfig struct {
	// File receives log output when set; empty means stderr.
	File string `mapstructure:"file"`

	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is how many rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// Load reads configuration for the workspace rooted at root. A missing
// devsync.yaml yields defaults; a malformed one is an error.
func Load(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sync_root", ".")
	v.SetDefault("workspace_root", ".")
	v.SetDefault("database_path", "devsync.db")
	v.SetDefault("debounce_window", 100*time.Millisecond)
	v.SetDefault("batch_window", 100*time.Millisecond)
	v.SetDefault("cache_ttl", 300*time.Second)
	v.SetDefault("dashboard_port", 8090)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetConfigFile(filepath.Join(root, ConfigFileName))
	v.SetEnvPrefix("DEVSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults cover a missing file; anything else is a real problem.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}

	cfg.SyncRoot = resolvePath(root, cfg.SyncRoot)
	cfg.WorkspaceRoot = resolvePath(root, cfg.WorkspaceRoot)
	cfg.DatabasePath = resolvePath(root, cfg.DatabasePath)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window cannot be negative")
	}
	if c.BatchWindow < 0 {
		return fmt.Errorf("batch_window cannot be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl cannot be negative")
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard_port %d out of range", c.DashboardPort)
	}
	return nil
}

// resolvePath makes rel absolute against root unless it already is.
func resolvePath(root, rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}

// FindRoot walks upward from dir looking for a devsync.yaml, returning the
// directory that holds it. When none is found the starting directory is the
// workspace root.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, ConfigFileName)); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		cur = parent
	}
}
