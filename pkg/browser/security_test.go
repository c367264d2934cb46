package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURLSchemes(t *testing.T) {
	policy := NewSecurityPolicy(SecurityPolicyConfig{AllowLocalhost: true})

	assert.NoError(t, policy.ValidateURL("https://example.com/path"))
	assert.NoError(t, policy.ValidateURL("http://example.com"))
	assert.NoError(t, policy.ValidateURL("about:blank"))

	err := policy.ValidateURL("ftp://example.com/file")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSecurity, CodeOf(err))

	err = policy.ValidateURL("not a url at all")
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))

	err = policy.ValidateURL("")
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestValidateURLFilePolicy(t *testing.T) {
	blocked := NewSecurityPolicy(SecurityPolicyConfig{AllowLocalhost: true})
	err := blocked.ValidateURL("file:///etc/passwd")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSecurity, CodeOf(err))

	allowed := NewSecurityPolicy(SecurityPolicyConfig{AllowFileURLs: true, AllowLocalhost: true})
	assert.NoError(t, allowed.ValidateURL("file:///tmp/page.html"))
}

func TestValidateURLLocalhostPolicy(t *testing.T) {
	blocked := NewSecurityPolicy(SecurityPolicyConfig{AllowLocalhost: false})

	for _, u := range []string{
		"http://localhost:8080/admin",
		"http://127.0.0.1/",
		"http://127.1.2.3/",
		"http://0.0.0.0:9000",
		"http://[::1]:3000/",
	} {
		err := blocked.ValidateURL(u)
		require.Error(t, err, "expected %s to be blocked", u)
		assert.Equal(t, ErrCodeSecurity, CodeOf(err))
	}

	allowed := NewSecurityPolicy(SecurityPolicyConfig{AllowLocalhost: true})
	assert.NoError(t, allowed.ValidateURL("http://localhost:8080/admin"))
}

func TestValidateURLDomainLists(t *testing.T) {
	policy := NewSecurityPolicy(SecurityPolicyConfig{
		AllowLocalhost: true,
		AllowedDomains: []string{"example.com", "*.trusted.org"},
	})

	assert.NoError(t, policy.ValidateURL("https://example.com/page"))
	assert.NoError(t, policy.ValidateURL("https://api.trusted.org/v1"))
	assert.NoError(t, policy.ValidateURL("https://trusted.org/"))

	err := policy.ValidateURL("https://evil.com/")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSecurity, CodeOf(err))

	blocky := NewSecurityPolicy(SecurityPolicyConfig{
		AllowLocalhost: true,
		BlockedDomains: []string{".ads.net"},
	})
	assert.NoError(t, blocky.ValidateURL("https://example.com/"))

	err = blocky.ValidateURL("https://tracker.ads.net/pixel")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSecurity, CodeOf(err))
}

func TestMatchDomain(t *testing.T) {
	tests := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"example.com", "example.com", true},
		{"www.example.com", "example.com", false},
		{"www.example.com", "*.example.com", true},
		{"example.com", "*.example.com", true},
		{"deep.sub.example.com", "*.example.com", true},
		{"notexample.com", "*.example.com", false},
		{"sub.example.com", ".example.com", true},
		{"example.com", ".example.com", true},
		{"example.com", "EXAMPLE.COM", true},
		{"other.org", "example.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matchDomain(tt.host, tt.pattern),
			"matchDomain(%q, %q)", tt.host, tt.pattern)
	}
}

func TestValidateScreenshotPath(t *testing.T) {
	assert.NoError(t, ValidateScreenshotPath("/tmp/shot.png"))
	assert.NoError(t, ValidateScreenshotPath("out/result.JPEG"))
	assert.NoError(t, ValidateScreenshotPath("page.jpg"))

	err := ValidateScreenshotPath("")
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))

	err = ValidateScreenshotPath("/tmp/shot.pdf")
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
}

func TestIsValidSelector(t *testing.T) {
	assert.True(t, IsValidSelector("#login > button.primary"))
	assert.True(t, IsValidSelector("input[name='q']"))

	assert.False(t, IsValidSelector(""))
	assert.False(t, IsValidSelector("<script>alert(1)</script>"))
	assert.False(t, IsValidSelector("a[href='javascript:void(0)']"))
}
