package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// BackendConfig holds the connection settings for the managed backend.
type BackendConfig struct {
	// BaseURL is the root URL of the REST API (e.g., https://sim.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// RealtimeURL is the websocket endpoint of the realtime service.
	// When empty it is derived from BaseURL.
	RealtimeURL string `mapstructure:"realtime_url" yaml:"realtime_url"`

	// APIKey is the public project key sent alongside the access token.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// TimeoutSec bounds a single REST request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RateLimit is the maximum number of REST requests per second.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// NotificationsConfig holds notification bell preferences.
type NotificationsConfig struct {
	// ToastSeconds is how long a live-event toast stays visible.
	ToastSeconds int `mapstructure:"toast_seconds" yaml:"toast_seconds"`

	// MaxItems caps the in-memory list. Zero means unbounded.
	MaxItems int `mapstructure:"max_items" yaml:"max_items"`
}

// LogConfig controls where diagnostics are written.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level console configuration.
type AppConfig struct {
	Backend       BackendConfig       `mapstructure:"backend" yaml:"backend"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

// RealtimeEndpoint returns the configured realtime URL, or one derived
// from the REST base URL by switching the scheme to ws/wss.
func (c BackendConfig) RealtimeEndpoint() string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}
	base := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/realtime/v1/websocket"
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/simadmin/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "simadmin", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			TimeoutSec: 30,
			RateLimit:  5,
		},
		Notifications: NotificationsConfig{
			ToastSeconds: 5,
			MaxItems:     200,
		},
		Log: LogConfig{
			File: "simadmin.log",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// SIMADMIN_* environment variables override file values. If the file does
// not exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("simadmin")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults also register the keys so AutomaticEnv can resolve them.
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.realtime_url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout_sec", 30)
	v.SetDefault("backend.rate_limit", 5)
	v.SetDefault("notifications.toast_seconds", 5)
	v.SetDefault("notifications.max_items", 200)
	v.SetDefault("log.file", "simadmin.log")

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Backend.TimeoutSec <= 0 {
		cfg.Backend.TimeoutSec = 30
	}
	if cfg.Notifications.ToastSeconds <= 0 {
		cfg.Notifications.ToastSeconds = 5
	}
	if cfg.Notifications.MaxItems < 0 {
		cfg.Notifications.MaxItems = 0
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("notifications", cfg.Notifications)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
