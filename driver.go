package stool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/sauce"

	"github.com/wanmail/stool/internal/install"
)

// Browser names understood by NewDriver.
const (
	Chrome   = "chrome"
	Firefox  = "firefox"
	IE       = "ie"
	HTMLUnit = "htmlunit"
)

// browserNames maps the accepted browser names to the WebDriver
// "browserName" capability.
var browserNames = map[string]string{
	Chrome:              "chrome",
	"googlechrome":      "chrome",
	Firefox:             "firefox",
	"gecko":             "firefox",
	IE:                  "internet explorer",
	"internet explorer": "internet explorer",
	"internetexplorer":  "internet explorer",
	HTMLUnit:            "htmlunit",
}

// SupportedBrowsers returns the browsers NewDriver can start.
func SupportedBrowsers() []string {
	return []string{Chrome, Firefox, IE, HTMLUnit}
}

// canonicalBrowser returns the short name of a browser, e.g. "chrome" for
// "Google Chrome".
func canonicalBrowser(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.Replace(n, "google ", "google", 1)
	switch browserNames[n] {
	case "chrome":
		return Chrome, nil
	case "firefox":
		return Firefox, nil
	case "internet explorer":
		return IE, nil
	case "htmlunit":
		return HTMLUnit, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrInvalidBrowser, name, strings.Join(SupportedBrowsers(), ", "))
}

// DriverOption configures a Driver.
type DriverOption func(*driverConfig) error

type driverConfig struct {
	headless       bool
	executablePath string
	binaryPath     string
	installDir     string
	port           int
	args           []string
	prefs          map[string]interface{}

	remoteURL   string
	seleniumJar string

	sauceUser, sauceKey string
	sauceCaps           *sauce.Capabilities
	sauceConnectPath    string

	frameBuffer bool
	output      io.Writer
	proxy       *selenium.Proxy

	pageLoadTimeout time.Duration
	implicitWait    time.Duration
}

// Headless runs the browser without a visible window.
func Headless() DriverOption {
	return func(c *driverConfig) error {
		c.headless = true
		return nil
	}
}

// ExecutablePath sets the path of the driver binary (chromedriver,
// geckodriver).
func ExecutablePath(path string) DriverOption {
	return func(c *driverConfig) error {
		c.executablePath = path
		return nil
	}
}

// BrowserBinary sets the path of the browser binary itself.
func BrowserBinary(path string) DriverOption {
	return func(c *driverConfig) error {
		c.binaryPath = path
		return nil
	}
}

// AutoInstall downloads the driver binary into dir when no executable path
// was given.
func AutoInstall(dir string) DriverOption {
	return func(c *driverConfig) error {
		c.installDir = dir
		return nil
	}
}

// Port sets the port of the local driver service. Zero picks an unused port.
func Port(port int) DriverOption {
	return func(c *driverConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
		c.port = port
		return nil
	}
}

// BrowserArgs adds command-line arguments for the browser.
func BrowserArgs(args ...string) DriverOption {
	return func(c *driverConfig) error {
		c.args = append(c.args, args...)
		return nil
	}
}

// BrowserPrefs sets browser preferences (Chrome "prefs", Firefox
// about:config). Later calls override earlier keys.
func BrowserPrefs(prefs map[string]interface{}) DriverOption {
	return func(c *driverConfig) error {
		if c.prefs == nil {
			c.prefs = make(map[string]interface{}, len(prefs))
		}
		for k, v := range prefs {
			c.prefs[k] = v
		}
		return nil
	}
}

// Remote connects to an already running WebDriver server or grid instead of
// starting a local service.
func Remote(url string) DriverOption {
	return func(c *driverConfig) error {
		if c.sauceCaps != nil {
			return errors.New("remote URL and Sauce Labs are mutually exclusive")
		}
		c.remoteURL = url
		return nil
	}
}

// SeleniumServer starts the Selenium standalone server from the given JAR.
// It is needed for browsers without a dedicated driver service (ie,
// htmlunit).
func SeleniumServer(jarPath string) DriverOption {
	return func(c *driverConfig) error {
		c.seleniumJar = jarPath
		return nil
	}
}

// Sauce runs the browser on Sauce Labs.
func Sauce(user, accessKey string, caps sauce.Capabilities) DriverOption {
	return func(c *driverConfig) error {
		if c.remoteURL != "" {
			return errors.New("remote URL and Sauce Labs are mutually exclusive")
		}
		if user == "" || accessKey == "" {
			return errors.New("sauce labs user name and access key are required")
		}
		c.sauceUser, c.sauceKey = user, accessKey
		c.sauceCaps = &caps
		return nil
	}
}

// SauceTunnel runs the browser on Sauce Labs through a Sauce Connect Proxy
// started from the binary at path, so the browser can reach hosts only this
// machine sees. It requires Sauce.
func SauceTunnel(path string) DriverOption {
	return func(c *driverConfig) error {
		if path == "" {
			return errors.New("sauce connect path is required")
		}
		c.sauceConnectPath = path
		return nil
	}
}

// FrameBuffer starts an X virtual frame buffer for the browser to run in.
func FrameBuffer() DriverOption {
	return func(c *driverConfig) error {
		c.frameBuffer = true
		return nil
	}
}

// ServiceOutput sends the output of the driver service to w.
func ServiceOutput(w io.Writer) DriverOption {
	return func(c *driverConfig) error {
		c.output = w
		return nil
	}
}

// Proxy configures the browser's proxy.
func Proxy(p selenium.Proxy) DriverOption {
	return func(c *driverConfig) error {
		if p.Type == "" {
			return errors.New("proxy type is required")
		}
		c.proxy = &p
		return nil
	}
}

// PageLoadTimeout sets the session's page load timeout.
func PageLoadTimeout(d time.Duration) DriverOption {
	return func(c *driverConfig) error {
		c.pageLoadTimeout = d
		return nil
	}
}

// ImplicitWait sets the session's implicit wait for element lookups.
func ImplicitWait(d time.Duration) DriverOption {
	return func(c *driverConfig) error {
		c.implicitWait = d
		return nil
	}
}

// Driver is a WebDriver session together with the local service process
// backing it, if any.
type Driver struct {
	browser string
	wd      selenium.WebDriver
	svc     *selenium.Service
	tunnel  *sauce.Connect
}

// Hooks for tests.
var (
	newRemote                 = selenium.NewRemote
	newChromeDriverService    = selenium.NewChromeDriverService
	newGeckoDriverService     = selenium.NewGeckoDriverService
	newSeleniumService        = selenium.NewSeleniumService
	stopService               = (*selenium.Service).Stop
	startTunnel               = (*sauce.Connect).Start
	stopTunnel                = (*sauce.Connect).Stop
	lookPath                  = exec.LookPath
	installDriver             = install.Driver
	driverExecutables         = map[string]string{Chrome: "chromedriver", Firefox: "geckodriver"}
	errDriverNeedsSeleniumJar = errors.New("requires a Selenium server: use Remote, Sauce or SeleniumServer")
)

// NewDriver starts a browser session. The browser is one of
// SupportedBrowsers, case-insensitive.
func NewDriver(browser string, opts ...DriverOption) (*Driver, error) {
	name, err := canonicalBrowser(browser)
	if err != nil {
		return nil, err
	}
	c := &driverConfig{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.sauceConnectPath != "" && c.sauceCaps == nil {
		return nil, errors.New("a Sauce Connect tunnel requires Sauce")
	}

	caps := c.capabilities(name)
	d := &Driver{browser: name}

	addr := c.remoteURL
	switch {
	case addr != "":
	case c.sauceCaps != nil:
		m, err := c.sauceCaps.ToMap()
		if err != nil {
			return nil, fmt.Errorf("error obtaining map for sauce.Capabilities: %v", err)
		}
		for k, v := range m {
			caps[k] = v
		}
		addr = sauce.Addr(c.sauceUser, c.sauceKey)
		if c.sauceConnectPath != "" {
			if d.tunnel, err = c.openTunnel(); err != nil {
				return nil, err
			}
			addr = d.tunnel.Addr()
		}
	default:
		d.svc, addr, err = c.startService(name)
		if err != nil {
			return nil, err
		}
	}

	d.wd, err = newRemote(caps, addr)
	if err != nil {
		d.stopProcesses()
		return nil, fmt.Errorf("error creating %s session at %s: %w", name, addr, err)
	}
	if err := c.applyTimeouts(d.wd); err != nil {
		d.Quit()
		return nil, err
	}
	glog.Infof("selenium %s driver started (session %s)", name, d.wd.SessionID())
	return d, nil
}

func (c *driverConfig) capabilities(name string) selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": browserNames[name]}
	switch name {
	case Chrome:
		cc := chrome.Capabilities{
			Path: c.binaryPath,
			Args: append([]string(nil), c.args...),
			W3C:  true,
		}
		if len(c.prefs) > 0 {
			cc.Prefs = c.prefs
		}
		if c.headless {
			cc.Args = append(cc.Args, "--headless", "--disable-gpu")
		}
		caps.AddChrome(cc)
	case Firefox:
		fc := firefox.Capabilities{
			Binary: c.binaryPath,
			Args:   append([]string(nil), c.args...),
			Prefs:  c.prefs,
		}
		if c.headless {
			fc.Args = append(fc.Args, "-headless")
		}
		if debugFlag {
			fc.Log = &firefox.Log{Level: firefox.Trace}
		}
		caps.AddFirefox(fc)
	case IE:
		if c.headless {
			glog.Warning("internet explorer does not support headless mode; ignoring")
		}
	case HTMLUnit:
		caps["javascriptEnabled"] = true
	}
	if c.proxy != nil {
		caps.AddProxy(*c.proxy)
	}
	return caps
}

func (c *driverConfig) openTunnel() (*sauce.Connect, error) {
	port := c.port
	if port == 0 {
		var err error
		if port, err = pickUnusedPort(); err != nil {
			return nil, fmt.Errorf("error picking a port for Sauce Connect: %v", err)
		}
	}
	sc := &sauce.Connect{
		Path:                c.sauceConnectPath,
		UserName:            c.sauceUser,
		AccessKey:           c.sauceKey,
		SeleniumPort:        port,
		QuitProcessUponExit: true,
		Verbose:             debugFlag,
	}
	if err := startTunnel(sc); err != nil {
		return nil, fmt.Errorf("error starting Sauce Connect: %v", err)
	}
	return sc, nil
}

func (c *driverConfig) serviceOptions() []selenium.ServiceOption {
	var opts []selenium.ServiceOption
	if c.frameBuffer {
		opts = append(opts, selenium.StartFrameBuffer())
	}
	if c.output != nil {
		opts = append(opts, selenium.Output(c.output))
	}
	return opts
}

// startService launches the local process that speaks WebDriver for the
// browser and returns its address.
func (c *driverConfig) startService(name string) (*selenium.Service, string, error) {
	port := c.port
	if port == 0 {
		var err error
		if port, err = pickUnusedPort(); err != nil {
			return nil, "", fmt.Errorf("error picking a port for the driver service: %v", err)
		}
	}
	opts := c.serviceOptions()

	if c.seleniumJar != "" {
		switch name {
		case Chrome:
			path, err := c.driverPath(name)
			if err != nil {
				return nil, "", err
			}
			opts = append(opts, selenium.ChromeDriver(path))
		case Firefox:
			path, err := c.driverPath(name)
			if err != nil {
				return nil, "", err
			}
			opts = append(opts, selenium.GeckoDriver(path))
		}
		svc, err := newSeleniumService(c.seleniumJar, port, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("error starting the Selenium server: %v", err)
		}
		return svc, fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), nil
	}

	switch name {
	case Chrome:
		path, err := c.driverPath(name)
		if err != nil {
			return nil, "", err
		}
		svc, err := newChromeDriverService(path, port, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("error starting the ChromeDriver server: %v", err)
		}
		return svc, fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), nil
	case Firefox:
		path, err := c.driverPath(name)
		if err != nil {
			return nil, "", err
		}
		svc, err := newGeckoDriverService(path, port, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("error starting the GeckoDriver server: %v", err)
		}
		return svc, fmt.Sprintf("http://127.0.0.1:%d", port), nil
	}
	return nil, "", fmt.Errorf("%s %w", name, errDriverNeedsSeleniumJar)
}

// driverPath finds the driver executable: the explicit path, an installed
// copy, or the one on the PATH.
func (c *driverConfig) driverPath(name string) (string, error) {
	if c.executablePath != "" {
		return c.executablePath, nil
	}
	if c.installDir != "" {
		path, err := installDriver(context.Background(), name, c.installDir)
		if err != nil {
			return "", fmt.Errorf("error installing the %s driver: %w", name, err)
		}
		return path, nil
	}
	exe := driverExecutables[name]
	path, err := lookPath(exe)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH; set ExecutablePath or AutoInstall: %w", exe, err)
	}
	return filepath.Clean(path), nil
}

func (c *driverConfig) applyTimeouts(wd selenium.WebDriver) error {
	if c.pageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(c.pageLoadTimeout); err != nil {
			return fmt.Errorf("error setting page load timeout: %w", err)
		}
	}
	if c.implicitWait > 0 {
		if err := wd.SetImplicitWaitTimeout(c.implicitWait); err != nil {
			return fmt.Errorf("error setting implicit wait timeout: %w", err)
		}
	}
	return nil
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// Browser returns the short browser name, e.g. "chrome".
func (d *Driver) Browser() string {
	return d.browser
}

// WebDriver returns the underlying session.
func (d *Driver) WebDriver() selenium.WebDriver {
	return d.wd
}

// Quit ends the session and stops the driver service.
func (d *Driver) Quit() error {
	var errs []error
	if d.wd != nil {
		if err := d.wd.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("error quitting session: %w", err))
		}
	}
	if err := d.stopProcesses(); err != nil {
		errs = append(errs, fmt.Errorf("error stopping the driver service: %w", err))
	}
	glog.Infof("selenium %s driver closed", d.browser)
	return errors.Join(errs...)
}

func (d *Driver) stopProcesses() error {
	if d.tunnel != nil {
		tunnel := d.tunnel
		d.tunnel = nil
		if err := stopTunnel(tunnel); err != nil {
			return err
		}
	}
	if d.svc == nil {
		return nil
	}
	svc := d.svc
	d.svc = nil
	return stopService(svc)
}
