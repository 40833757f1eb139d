package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CTAG07/Trellis/pkg/views"
	"github.com/natefinch/atomic"
)

const (
	sourceFS     = "fs"
	sourceSQLite = "sqlite"
)

// ServerConfig holds the configuration for the HTTP servers.
type ServerConfig struct {
	ServerAddr     string            `json:"server_addr"`
	ApiAddr        string            `json:"api_addr"`
	LogLevel       string            `json:"log_level"`
	DataDir        string            `json:"data_dir"`
	DatabasePath   string            `json:"database_path"`
	TemplateSource string            `json:"template_source"`
	WatchTemplates bool              `json:"watch_templates"`
	IndexView      string            `json:"index_view"`
	Headers        map[string]string `json:"headers"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Views  *views.Config `json:"view_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:     ":7277",
		ApiAddr:        ":7278",
		LogLevel:       "info",
		DataDir:        "./data",
		DatabasePath:   "./data/trellis.db?_journal_mode=WAL&_busy_timeout=5000",
		TemplateSource: sourceFS,
		WatchTemplates: false,
		IndexView:      "home",
		Headers: map[string]string{
			"Cache-Control":           "no-cache",
			"Content-Security-Policy": "default-src 'self'; style-src 'self' 'unsafe-inline';",
			"X-Content-Type-Options":  "nosniff",
		},
	}
}

// DefaultViewConfig is views.DefaultConfig rooted in the data directory.
func DefaultViewConfig(dataDir string) *views.Config {
	cfg := views.DefaultConfig()
	cfg.Root = filepath.Join(dataDir, "site")
	cfg.DefaultLayout = "main"
	return cfg
}

// DefaultConfig returns the configuration written on first start.
func DefaultConfig() *Config {
	server := DefaultServerConfig()
	return &Config{
		Server: server,
		Views:  DefaultViewConfig(server.DataDir),
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server == nil || c.Views == nil {
		return fmt.Errorf("config is missing the server_config or view_config section")
	}
	switch c.Server.TemplateSource {
	case sourceFS, sourceSQLite:
	default:
		return fmt.Errorf("unknown template_source '%s': expected '%s' or '%s'", c.Server.TemplateSource, sourceFS, sourceSQLite)
	}
	if c.Server.IndexView == "" {
		return fmt.Errorf("index_view must not be empty")
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			if err = SaveConfig(path, config); err != nil {
				// the server can still run with defaults
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// SaveConfig writes config to path atomically.
func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
