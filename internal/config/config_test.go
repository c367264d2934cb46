package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30000, cfg.Browser.DefaultTimeoutMs)
	assert.Equal(t, 30000, cfg.Browser.NavigationTimeoutMs)
	assert.True(t, cfg.Browser.AllowLocalhost)
	assert.False(t, cfg.Browser.AllowFileURLs)
	assert.False(t, cfg.Scenarios.Watch)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 30, cfg.History.RetentionDays)
	assert.True(t, cfg.Schedule.Enabled)
	assert.False(t, cfg.Gateway.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 8377, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()

		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("gateway enabled without secret", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gateway.Enabled = true
		cfg.Gateway.SharedSecret = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "shared_secret")
	})

	t.Run("gateway enabled with secret", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gateway.Enabled = true
		cfg.Gateway.SharedSecret = "0123456789abcdef"

		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("invalid gateway port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gateway.Enabled = true
		cfg.Gateway.SharedSecret = "0123456789abcdef"
		cfg.Gateway.Port = 70000

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("negative retention", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.History.RetentionDays = -1

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "retention_days")
	})

	t.Run("negative browser timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Browser.DefaultTimeoutMs = -5

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "default_timeout_ms")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "log level")
	})
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()

	str := cfg.String()
	assert.NotEmpty(t, str)
	assert.Contains(t, str, "browser")
	assert.Contains(t, str, "gateway")
}
