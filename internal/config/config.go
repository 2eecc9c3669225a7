// Package config provides configuration management for walletd.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	walleterr "github.com/votis/walletd/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Custody  CustodyConfig  `yaml:"custody"`
	Keystore KeystoreConfig `yaml:"keystore"`
	Sessions SessionsConfig `yaml:"sessions"`
	Server   ServerConfig   `yaml:"server"`
	Retry    RetryConfig    `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CustodyConfig defines the external custody service connection.
type CustodyConfig struct {
	BaseURL        string        `yaml:"base_url"`
	OrganizationID string        `yaml:"organization_id"`
	Timeout        time.Duration `yaml:"timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
}

// KeystoreConfig defines where the operator API key lives.
type KeystoreConfig struct {
	KeyFile string `yaml:"key_file"`
}

// SessionsConfig defines session lifetimes and maintenance cadence.
type SessionsConfig struct {
	ReadOnlyTTL   time.Duration `yaml:"read_only_ttl"`
	ReadWriteTTL  time.Duration `yaml:"read_write_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RetryConfig defines the background retry queue.
type RetryConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Custody: CustodyConfig{
			Timeout:       15 * time.Second,
			RatePerSecond: 10,
			Burst:         20,
		},
		Keystore: KeystoreConfig{
			KeyFile: filepath.Join(DefaultHome(), "operator.key"),
		},
		Sessions: SessionsConfig{
			ReadOnlyTTL:   time.Hour,
			ReadWriteTTL:  15 * time.Minute,
			SweepInterval: time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Retry: RetryConfig{
			QueueCapacity: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the specified file, applying defaults
// for anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config file path is from validated user input
	if err != nil {
		if os.IsNotExist(err) {
			return nil, walleterr.WithDetails(walleterr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, walleterr.Wrap(err, "reading config file")
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.Wrap(walleterr.ErrConfigInvalid, "parsing config file")
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return walleterr.Wrap(err, "creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return walleterr.Wrap(err, "encoding config")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return walleterr.Wrap(err, "writing config file")
	}
	return nil
}

// Validate checks the fields required before serving.
func (c *Config) Validate() error {
	if c.Custody.BaseURL == "" {
		return walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrConfigInvalid, "custody.base_url is required"),
			"set custody.base_url or the WALLETD_CUSTODY_URL environment variable")
	}
	if c.Custody.OrganizationID == "" {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "custody.organization_id is required")
	}
	if c.Keystore.KeyFile == "" {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "keystore.key_file is required")
	}
	if c.Sessions.ReadOnlyTTL <= 0 || c.Sessions.ReadWriteTTL <= 0 {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "session lifetimes must be positive")
	}
	return nil
}

// Path returns the default config file path under home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default walletd home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletd"
	}
	return filepath.Join(home, ".walletd")
}
