package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harun/rudder/internal/observability"
)

// Session owns the launcher, browser and page triple for one automation run.
// It is not safe for concurrent use: every method must be called from the
// single worker goroutine that owns the session. The executor enforces that
// by serializing all commands.
type Session struct {
	policy   *SecurityPolicy
	defaults Defaults

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	logger zerolog.Logger
}

// Defaults hold the per-session timeout and launch defaults.
type Defaults struct {
	Headless          bool
	ExecPath          string
	Timeout           time.Duration // element waits
	NavigationTimeout time.Duration
}

// OpenParams override session defaults for a single Open call.
type OpenParams struct {
	Headless *bool
	ExecPath string
}

// NewSession creates an unopened session. The browser process is only
// launched when Open executes.
func NewSession(policy *SecurityPolicy, defaults Defaults) *Session {
	if defaults.Timeout <= 0 {
		defaults.Timeout = 30 * time.Second
	}
	if defaults.NavigationTimeout <= 0 {
		defaults.NavigationTimeout = 30 * time.Second
	}
	if policy == nil {
		policy = NewSecurityPolicy(SecurityPolicyConfig{AllowLocalhost: true})
	}
	return &Session{
		policy:   policy,
		defaults: defaults,
		logger:   log.With().Str("component", "browser").Logger(),
	}
}

// IsOpen reports whether the session currently owns a live browser.
func (s *Session) IsOpen() bool {
	return s.browser != nil
}

// Open launches a browser, connects to it and creates the session page.
// A session holds at most one browser: opening twice is an error.
func (s *Session) Open(params OpenParams) error {
	if s.browser != nil {
		return &Error{
			Code:    ErrCodeAlreadyOpen,
			Message: "browser is already open",
		}
	}

	start := time.Now()

	headless := s.defaults.Headless
	if params.Headless != nil {
		headless = *params.Headless
	}
	execPath := s.defaults.ExecPath
	if params.ExecPath != "" {
		execPath = params.ExecPath
	}

	l := launcher.New().Headless(headless)
	if execPath != "" {
		l = l.Bin(execPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return &Error{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("failed to launch browser: %v", err),
		}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return &Error{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("failed to connect to browser: %v", err),
		}
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		l.Kill()
		return &Error{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("failed to create page: %v", err),
		}
	}

	s.launcher = l
	s.browser = b
	s.page = page

	observability.RecordBrowserLaunch(time.Since(start))
	observability.SetSessionActive(true)

	s.logger.Info().
		Bool("headless", headless).
		Dur("launch_duration", time.Since(start)).
		Msg("browser opened")

	return nil
}

// Page returns the session page, or an error when the session is not open.
func (s *Session) Page() (*rod.Page, error) {
	if s.page == nil {
		return nil, &Error{
			Code:    ErrCodeNotOpen,
			Message: "browser is not open",
		}
	}
	return s.page, nil
}

// Navigate loads a URL on the session page and waits for the load event.
func (s *Session) Navigate(url string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}

	if err := s.policy.ValidateURL(url); err != nil {
		return err
	}

	p := page.Timeout(s.defaults.NavigationTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		observability.RecordNavigation(false)
		return &Error{
			Code:    ErrCodeNavigation,
			Message: fmt.Sprintf("failed to navigate to %s: %v", url, err),
		}
	}

	if err := p.WaitLoad(); err != nil {
		observability.RecordNavigation(false)
		return &Error{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("page load timed out for %s: %v", url, err),
		}
	}

	observability.RecordNavigation(true)
	s.logger.Debug().Str("url", url).Msg("navigated")

	return nil
}

// CurrentURL returns the URL of the session page.
func (s *Session) CurrentURL() (string, error) {
	page, err := s.Page()
	if err != nil {
		return "", err
	}
	info, err := page.Info()
	if err != nil {
		return "", &Error{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("failed to read page info: %v", err),
		}
	}
	return info.URL, nil
}

// Title returns the title of the session page.
func (s *Session) Title() (string, error) {
	page, err := s.Page()
	if err != nil {
		return "", err
	}
	info, err := page.Info()
	if err != nil {
		return "", &Error{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("failed to read page info: %v", err),
		}
	}
	return info.Title, nil
}

// DefaultTimeout returns the element wait timeout for this session.
func (s *Session) DefaultTimeout() time.Duration {
	return s.defaults.Timeout
}

// Policy returns the session's security policy.
func (s *Session) Policy() *SecurityPolicy {
	return s.policy
}

// Close tears the session down: page, browser, then the launched process.
// Closing a session that is not open is an error, including a second Close.
func (s *Session) Close() error {
	if s.browser == nil {
		return &Error{
			Code:    ErrCodeNotOpen,
			Message: "browser is not open",
		}
	}

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close page")
		}
		s.page = nil
	}

	if err := s.browser.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close browser")
	}
	s.browser = nil

	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}

	observability.SetSessionActive(false)
	s.logger.Info().Msg("browser closed")

	return nil
}
