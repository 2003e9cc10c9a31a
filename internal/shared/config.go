package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Store backends accepted in [StoreConfig.Backend].
const (
	BackendSQLite = "sqlite"
	BackendHosted = "hosted"
)

// Environment variables that override the configuration file.
const (
	EnvStoreURL     = "DJQ_STORE_URL"
	EnvStoreAPIKey  = "DJQ_STORE_API_KEY"
	EnvDatabasePath = "DJQ_DATABASE_PATH"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string  `toml:"host"`
	Port        int     `toml:"port"`
	SubmitRate  float64 `toml:"submit_rate"`
	SubmitBurst int     `toml:"submit_burst"`
	// TrustedProxies lists proxy addresses or CIDR ranges whose forwarding headers name the client.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects where song requests are persisted.
type StoreConfig struct {
	Backend string       `toml:"backend"`
	Hosted  HostedConfig `toml:"hosted"`
}

// HostedConfig contains settings for the hosted request table.
type HostedConfig struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Table          string `toml:"table"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Timeout returns the per-request timeout as a [time.Duration].
func (h HostedConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// DashboardConfig contains settings for the DJ dashboard session.
type DashboardConfig struct {
	LockPath string `toml:"lock_path"`
	LogPath  string `toml:"log_path"`
}

// LoadConfig reads a TOML configuration file from the specified path and overlays it on [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendHosted:
		if c.Store.Hosted.URL == "" {
			return fmt.Errorf("%w: store.hosted.url is required for the hosted backend", ErrInvalidConfig)
		}
		if c.Store.Hosted.Table == "" {
			return fmt.Errorf("%w: store.hosted.table is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	return nil
}

// ApplyEnv overrides configuration values with any set environment variables.
//
// lookup is usually [os.LookupEnv]; secrets such as the hosted API key are expected to come from here rather than the file.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvStoreURL); ok && strings.TrimSpace(v) != "" {
		c.Store.Hosted.URL = strings.TrimSpace(v)
		c.Store.Backend = BackendHosted
	}
	if v, ok := lookup(EnvStoreAPIKey); ok && v != "" {
		c.Store.Hosted.APIKey = v
	}
	if v, ok := lookup(EnvDatabasePath); ok && v != "" {
		c.Database.Path = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
