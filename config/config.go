// Package config loads the lanshare configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full lanshare configuration, for both the server
// daemon and the CLI client.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
	LogLevel string       `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig configures the lanshared daemon.
type ServerConfig struct {
	Listen     string `yaml:"listen"`
	DBPath     string `yaml:"db_path"`
	UploadsDir string `yaml:"uploads_dir"`
	MaxFileMB  int    `yaml:"max_file_mb"`
}

// ClientConfig configures the lanshare CLI.
type ClientConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns sane defaults for a single-host LAN deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:     ":9848",
			DBPath:     "lanshare.db",
			UploadsDir: "uploads",
			MaxFileMB:  256,
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:9848",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file merged over DefaultConfig, then applies
// LANSHARE_* environment overrides. An empty path skips the file and uses
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overrides file values from the environment. The variables match
// the YAML fields: LANSHARE_LISTEN, LANSHARE_DB_PATH, LANSHARE_UPLOADS_DIR,
// LANSHARE_BASE_URL, LANSHARE_LOG_LEVEL.
func (c *Config) applyEnv() {
	if v := os.Getenv("LANSHARE_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("LANSHARE_DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("LANSHARE_UPLOADS_DIR"); v != "" {
		c.Server.UploadsDir = v
	}
	if v := os.Getenv("LANSHARE_BASE_URL"); v != "" {
		c.Client.BaseURL = v
	}
	if v := os.Getenv("LANSHARE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if c.Server.UploadsDir == "" {
		return fmt.Errorf("server.uploads_dir is required")
	}
	if c.Server.MaxFileMB <= 0 {
		return fmt.Errorf("server.max_file_mb must be > 0")
	}
	if c.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level %q (use debug, info, warn or error)", c.LogLevel)
	}
	return nil
}

// MaxFileBytes returns the upload cap in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.Server.MaxFileMB) * 1024 * 1024 }
