// Package config loads daemon settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/codeGROOVE-dev/groupcheck/pkg/store"
)

// Group is a watched group entry in the config file.
type Group struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// Config holds daemon settings. Durations are plain integers with the
// unit in the key name so the file stays trivially editable.
type Config struct {
	AutoDetect             bool    `koanf:"auto_detect"`
	MaxRecentChecks        int     `koanf:"max_recent_checks"`
	ProcessIntervalSeconds int     `koanf:"process_interval_seconds"`
	CacheTTLHours          int     `koanf:"cache_ttl_hours"`
	StatePath              string  `koanf:"state_path"`
	SidebarContext         string  `koanf:"sidebar_context"`
	Groups                 []Group `koanf:"groups"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AutoDetect:             true,
		MaxRecentChecks:        200,
		ProcessIntervalSeconds: 60,
		CacheTTLHours:          24,
		StatePath:              store.DefaultDir(),
		SidebarContext:         "sidebar",
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	return filepath.Join(configDir, "groupcheck", "config.toml")
}

// Load reads a TOML config file over the defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRecentChecks < 0 {
		return fmt.Errorf("max_recent_checks must not be negative, got %d", c.MaxRecentChecks)
	}
	if c.ProcessIntervalSeconds <= 0 {
		return fmt.Errorf("process_interval_seconds must be positive, got %d", c.ProcessIntervalSeconds)
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("cache_ttl_hours must be positive, got %d", c.CacheTTLHours)
	}
	for _, g := range c.Groups {
		if g.ID == "" {
			return fmt.Errorf("group %q missing id", g.Name)
		}
	}
	return nil
}

// ProcessInterval returns the periodic queue kick interval.
func (c *Config) ProcessInterval() time.Duration {
	return time.Duration(c.ProcessIntervalSeconds) * time.Second
}

// CacheTTL returns the HTTP cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
