package browser

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SecurityPolicyConfig controls which URLs a session may navigate to.
type SecurityPolicyConfig struct {
	AllowFileURLs  bool
	AllowLocalhost bool
	AllowedDomains []string
	BlockedDomains []string
}

// SecurityPolicy validates navigation targets and screenshot destinations
// before the browser touches them.
type SecurityPolicy struct {
	config SecurityPolicyConfig
	logger zerolog.Logger
}

// NewSecurityPolicy creates a policy from the given config.
func NewSecurityPolicy(config SecurityPolicyConfig) *SecurityPolicy {
	return &SecurityPolicy{
		config: config,
		logger: log.With().Str("component", "security").Logger(),
	}
}

// ValidateURL checks a navigation target against the policy.
func (sp *SecurityPolicy) ValidateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" {
		return &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("invalid URL format: %s", urlStr),
		}
	}

	switch parsedURL.Scheme {
	case "http", "https", "about":
	case "file":
		if !sp.config.AllowFileURLs {
			sp.logViolation("file_url_blocked", urlStr)
			return &Error{
				Code:    ErrCodeSecurity,
				Message: "file:// URLs are not allowed",
				Details: map[string]interface{}{"url": urlStr},
			}
		}
	default:
		sp.logViolation("scheme_blocked", urlStr)
		return &Error{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("URL scheme %q is not allowed", parsedURL.Scheme),
			Details: map[string]interface{}{"url": urlStr},
		}
	}

	host := strings.ToLower(parsedURL.Hostname())

	if isLocalhostHost(host) && !sp.config.AllowLocalhost {
		sp.logViolation("localhost_blocked", urlStr)
		return &Error{
			Code:    ErrCodeSecurity,
			Message: "localhost URLs are not allowed",
			Details: map[string]interface{}{"url": urlStr},
		}
	}

	if len(sp.config.AllowedDomains) > 0 && host != "" {
		if !matchAnyDomain(host, sp.config.AllowedDomains) {
			sp.logViolation("domain_not_allowed", urlStr)
			return &Error{
				Code:    ErrCodeSecurity,
				Message: fmt.Sprintf("domain not in allowed list: %s", host),
				Details: map[string]interface{}{"url": urlStr, "domain": host},
			}
		}
	}

	if matchAnyDomain(host, sp.config.BlockedDomains) {
		sp.logViolation("domain_blocked", urlStr)
		return &Error{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("domain is blocked: %s", host),
			Details: map[string]interface{}{"url": urlStr, "domain": host},
		}
	}

	return nil
}

func (sp *SecurityPolicy) logViolation(violationType, url string) {
	sp.logger.Warn().
		Str("violation", violationType).
		Str("url", url).
		Msg("navigation blocked")
}

func isLocalhostHost(host string) bool {
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		host == "0.0.0.0" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "localhost.")
}

func matchAnyDomain(host string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchDomain(host, pattern) {
			return true
		}
	}
	return false
}

// matchDomain checks a host against a domain pattern. "*.example.com" and
// ".example.com" both match the domain and any of its subdomains.
func matchDomain(host, pattern string) bool {
	pattern = strings.ToLower(pattern)

	if host == pattern {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[2:]
		return strings.HasSuffix(host, "."+suffix) || host == suffix
	}

	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(host, pattern) || host == pattern[1:]
	}

	return false
}

// ValidateScreenshotPath checks the destination file for a screenshot.
func ValidateScreenshotPath(path string) error {
	if path == "" {
		return &Error{
			Code:    ErrCodeValidation,
			Message: "file_path is required for screenshot",
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return nil
	default:
		return &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("screenshot path must end in .png, .jpg or .jpeg: %s", path),
		}
	}
}

// IsValidSelector rejects empty selectors and obvious injection attempts.
func IsValidSelector(selector string) bool {
	if selector == "" {
		return false
	}

	dangerous := []string{"<script", "javascript:", "onerror=", "onload="}
	lowerSelector := strings.ToLower(selector)
	for _, pattern := range dangerous {
		if strings.Contains(lowerSelector, pattern) {
			return false
		}
	}

	return true
}
