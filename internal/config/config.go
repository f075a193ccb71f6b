// Package config loads sigfetch configuration: a YAML file under the
// user's home directory, optionally overridden by SIGFETCH_* environment
// variables and a local .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default server addresses for the MST experiment: today's shots are on
// the day server, older shots on the archive.
const (
	DefaultCurrentServer = "aurora.physics.wisc.edu"
	DefaultArchiveServer = "dave.physics.wisc.edu"
)

// Config is the full configuration tree.
type Config struct {
	Servers ServersConfig `yaml:"servers"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServersConfig names the two fixed data servers.
type ServersConfig struct {
	Current string `yaml:"current"`
	Archive string `yaml:"archive"`
}

// CacheConfig locates the on-disk result cache.
type CacheConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Servers: ServersConfig{
			Current: DefaultCurrentServer,
			Archive: DefaultArchiveServer,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath returns the standard config file location,
// ~/.sigfetch/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sigfetch", "config.yaml")
}

// Load reads the config file at path, layered over the defaults and under
// the environment. A missing file is not an error; defaults apply. A
// present-but-unparsable file is an error (silently ignoring a config the
// user wrote is worse than failing).
func Load(path string) (*Config, error) {
	// Best effort: a .env in the working directory populates the
	// environment before the override pass.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers SIGFETCH_* variables over cfg.
func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Servers.Current, "SIGFETCH_SERVER_CURRENT")
	set(&cfg.Servers.Archive, "SIGFETCH_SERVER_ARCHIVE")
	set(&cfg.Cache.Directory, "SIGFETCH_CACHE_DIR")
	set(&cfg.Logging.Level, "SIGFETCH_LOG_LEVEL")
	set(&cfg.Logging.Format, "SIGFETCH_LOG_FORMAT")
	set(&cfg.Logging.File, "SIGFETCH_LOG_FILE")
}

// CacheDir returns the effective cache root, expanding a leading "~" and
// defaulting to ~/.sigfetch/cache.
func (c *Config) CacheDir() (string, error) {
	dir := c.Cache.Directory
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, ".sigfetch", "cache"), nil
	}

	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir[1:], "/"))
	}
	return dir, nil
}
