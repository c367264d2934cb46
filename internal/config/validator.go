package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateSharedSecret validates the gateway shared secret
func (v *Validator) ValidateSharedSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("shared secret cannot be empty")
	}
	if len(secret) < 16 {
		return fmt.Errorf("shared secret must be at least 16 characters, got %d", len(secret))
	}
	return nil
}

// ValidateDomainPattern validates an allowed/blocked domain entry.
// Entries are bare hostnames, optionally with a leading wildcard label,
// e.g. "example.com" or "*.example.com".
func (v *Validator) ValidateDomainPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("domain pattern cannot be empty")
	}
	if strings.Contains(pattern, "://") {
		return fmt.Errorf("domain pattern %q must not include a scheme", pattern)
	}
	if strings.ContainsAny(pattern, "/ ") {
		return fmt.Errorf("domain pattern %q must be a bare hostname", pattern)
	}
	if strings.Count(pattern, "*") > 1 || (strings.Contains(pattern, "*") && !strings.HasPrefix(pattern, "*.")) {
		return fmt.Errorf("domain pattern %q: wildcard is only allowed as a leading label", pattern)
	}
	return nil
}

// ValidateTimeoutMs validates a millisecond timeout value
func (v *Validator) ValidateTimeoutMs(timeout int) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", timeout)
	}
	if timeout > 600000 {
		return fmt.Errorf("timeout too large (max 600000 ms), got %d", timeout)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Validate browser defaults
	if cfg.Browser.DefaultTimeoutMs != 0 {
		if err := v.ValidateTimeoutMs(cfg.Browser.DefaultTimeoutMs); err != nil {
			errors = append(errors, fmt.Errorf("browser default_timeout_ms: %w", err))
		}
	}
	if cfg.Browser.NavigationTimeoutMs != 0 {
		if err := v.ValidateTimeoutMs(cfg.Browser.NavigationTimeoutMs); err != nil {
			errors = append(errors, fmt.Errorf("browser navigation_timeout_ms: %w", err))
		}
	}
	for _, pattern := range cfg.Browser.AllowedDomains {
		if err := v.ValidateDomainPattern(pattern); err != nil {
			errors = append(errors, fmt.Errorf("browser allowed_domains: %w", err))
		}
	}
	for _, pattern := range cfg.Browser.BlockedDomains {
		if err := v.ValidateDomainPattern(pattern); err != nil {
			errors = append(errors, fmt.Errorf("browser blocked_domains: %w", err))
		}
	}

	// Validate gateway
	if cfg.Gateway.Enabled {
		if err := v.ValidatePort(cfg.Gateway.Port); err != nil {
			errors = append(errors, fmt.Errorf("gateway: %w", err))
		}
		if err := v.ValidateSharedSecret(cfg.Gateway.SharedSecret); err != nil {
			errors = append(errors, fmt.Errorf("gateway: %w", err))
		}
	}

	// Validate history
	if cfg.History.RetentionDays < 0 {
		errors = append(errors, fmt.Errorf("history retention_days must be >= 0"))
	}

	// Validate logging
	if cfg.Logging.Level != "" {
		if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}
