package stool

import (
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/tebeka/selenium"

	"github.com/wanmail/stool/parser"
)

// DefaultTimeout is the default time Click and WaitForElement wait for an
// element.
const DefaultTimeout = 10 * time.Second

// ToolsOption configures a Tools instance.
type ToolsOption func(*Tools) error

// WithParser registers a parser under name, replacing any existing one. The
// parser is available through Tools.Parse.
func WithParser(name string, fn parser.Func) ToolsOption {
	return func(t *Tools) error {
		if name == "" || fn == nil {
			return fmt.Errorf("%w: parser name and function are required", ErrInvalidValue)
		}
		t.parsers.Register(name, fn)
		return nil
	}
}

// WithClickTimeout sets how long Click waits for an element to become
// clickable.
func WithClickTimeout(d time.Duration) ToolsOption {
	return func(t *Tools) error {
		if d <= 0 {
			return fmt.Errorf("%w: click timeout must be positive, got %v", ErrInvalidValue, d)
		}
		t.clickTimeout = d
		return nil
	}
}

// WithWaitTimeout sets the default timeout of WaitForElement.
func WithWaitTimeout(d time.Duration) ToolsOption {
	return func(t *Tools) error {
		if d <= 0 {
			return fmt.Errorf("%w: wait timeout must be positive, got %v", ErrInvalidValue, d)
		}
		t.waitTimeout = d
		return nil
	}
}

// WithoutValidation skips the about:blank probe New runs against the driver.
func WithoutValidation() ToolsOption {
	return func(t *Tools) error {
		t.skipValidation = true
		return nil
	}
}

// Tools wraps a WebDriver session with higher level helpers.
type Tools struct {
	wd     selenium.WebDriver
	driver *Driver

	parsers        *parser.Registry
	clickTimeout   time.Duration
	waitTimeout    time.Duration
	skipValidation bool
}

// New returns Tools operating on an existing session.
func New(wd selenium.WebDriver, opts ...ToolsOption) (*Tools, error) {
	t := &Tools{
		wd:           wd,
		parsers:      parser.NewRegistry(),
		clickTimeout: DefaultTimeout,
		waitTimeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if wd == nil {
		return nil, fmt.Errorf("%w: nil WebDriver", ErrInvalidWebDriver)
	}
	if !t.skipValidation {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Launch starts a browser with NewDriver and returns Tools owning it. Close
// ends the session and stops the driver.
func Launch(browser string, driverOpts []DriverOption, opts []ToolsOption) (*Tools, error) {
	d, err := NewDriver(browser, driverOpts...)
	if err != nil {
		return nil, err
	}
	t, err := New(d.WebDriver(), opts...)
	if err != nil {
		if qerr := d.Quit(); qerr != nil {
			glog.Warningf("error closing %s driver after failed setup: %v", browser, qerr)
		}
		return nil, err
	}
	t.driver = d
	return t, nil
}

// Validate checks that the session responds by loading a blank page.
func (t *Tools) Validate() error {
	if err := t.wd.Get("about:blank"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebDriver, err)
	}
	title, err := t.wd.Title()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebDriver, err)
	}
	if title != "" {
		return fmt.Errorf("%w: about:blank has title %q", ErrInvalidWebDriver, title)
	}
	return nil
}

// Close ends the session. When Tools started the browser, the driver service
// is stopped as well.
func (t *Tools) Close() error {
	if t.driver != nil {
		return t.driver.Quit()
	}
	if err := t.wd.Quit(); err != nil {
		return err
	}
	glog.Info("selenium driver object closed")
	return nil
}

// WebDriver returns the underlying session.
func (t *Tools) WebDriver() selenium.WebDriver {
	return t.wd
}

// SessionID returns the WebDriver session ID.
func (t *Tools) SessionID() string {
	return t.wd.SessionID()
}

// URL returns the URL of the current page.
func (t *Tools) URL() (string, error) {
	return t.wd.CurrentURL()
}

// Title returns the title of the current page.
func (t *Tools) Title() (string, error) {
	return t.wd.Title()
}

// Text returns the HTML source of the current page.
func (t *Tools) Text() (string, error) {
	return t.wd.PageSource()
}

// Get loads a URL, a local HTML file or a string of HTML markup.
func (t *Tools) Get(urlOrHTML string) error {
	u, err := resolveContent(urlOrHTML)
	if err != nil {
		return err
	}
	debugLog("get %.80s", u)
	return t.wd.Get(u)
}

// ExecuteJS runs a JavaScript statement or expression and returns its
// result as a string. A statement without a leading "return" gets one.
func (t *Tools) ExecuteJS(statement string) (string, error) {
	s := strings.TrimSpace(statement)
	if s == "" {
		return "", fmt.Errorf("%w: statement must be a non-empty string", ErrInvalidContent)
	}
	if !strings.HasPrefix(s, "return") {
		s = "return " + s
	}
	v, err := t.wd.ExecuteScript(s, nil)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}

// BrowserVersion returns the version the session reports for the browser.
func (t *Tools) BrowserVersion() (semver.Version, error) {
	caps, err := t.wd.Capabilities()
	if err != nil {
		return semver.Version{}, err
	}
	for _, k := range []string{"browserVersion", "version"} {
		if v, ok := caps[k].(string); ok && v != "" {
			return parseVersion(v)
		}
	}
	return semver.Version{}, fmt.Errorf("session capabilities carry no browser version")
}

// parseVersion parses browser versions such as "76.0.3809.25" or "68.0",
// which carry more or fewer than three components.
func parseVersion(v string) (semver.Version, error) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return semver.Parse(strings.Join(parts, "."))
}
