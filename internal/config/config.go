package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Rudder configuration
type Config struct {
	// Browser session defaults
	Browser BrowserConfig `json:"browser" mapstructure:"browser"`

	// Scenario library
	Scenarios ScenariosConfig `json:"scenarios" mapstructure:"scenarios"`

	// Run history persistence
	History HistoryConfig `json:"history" mapstructure:"history"`

	// Scheduled scenario runs
	Schedule ScheduleConfig `json:"schedule" mapstructure:"schedule"`

	// Gateway server configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// BrowserConfig holds browser session defaults
type BrowserConfig struct {
	Headless            bool     `json:"headless" mapstructure:"headless"`
	ExecPath            string   `json:"exec_path" mapstructure:"exec_path"`
	DefaultTimeoutMs    int      `json:"default_timeout_ms" mapstructure:"default_timeout_ms"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms" mapstructure:"navigation_timeout_ms"`
	AllowFileURLs       bool     `json:"allow_file_urls" mapstructure:"allow_file_urls"`
	AllowLocalhost      bool     `json:"allow_localhost" mapstructure:"allow_localhost"`
	AllowedDomains      []string `json:"allowed_domains" mapstructure:"allowed_domains"`
	BlockedDomains      []string `json:"blocked_domains" mapstructure:"blocked_domains"`
}

// ScenariosConfig holds scenario library configuration
type ScenariosConfig struct {
	Dir   string `json:"dir" mapstructure:"dir"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// HistoryConfig holds run history configuration
type HistoryConfig struct {
	Enabled       bool   `json:"enabled" mapstructure:"enabled"`
	Path          string `json:"path" mapstructure:"path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
}

// ScheduleConfig holds scheduler configuration
type ScheduleConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:            false,
			DefaultTimeoutMs:    30000,
			NavigationTimeoutMs: 30000,
			AllowFileURLs:       false,
			AllowLocalhost:      true,
			AllowedDomains:      []string{},
			BlockedDomains:      []string{},
		},
		Scenarios: ScenariosConfig{
			Watch: false,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Schedule: ScheduleConfig{
			Enabled: true,
		},
		Gateway: GatewayConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         8377,
			SharedSecret: "",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Browser.DefaultTimeoutMs < 0 {
		return fmt.Errorf("browser default_timeout_ms must be >= 0")
	}
	if c.Browser.NavigationTimeoutMs < 0 {
		return fmt.Errorf("browser navigation_timeout_ms must be >= 0")
	}

	if c.Gateway.Enabled {
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			return fmt.Errorf("gateway port must be between 1 and 65535, got %d", c.Gateway.Port)
		}
		if c.Gateway.SharedSecret == "" {
			return fmt.Errorf("gateway shared_secret is required when the gateway is enabled")
		}
	}

	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention_days must be >= 0")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
