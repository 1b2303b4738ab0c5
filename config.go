package stool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/sauce"
	"gopkg.in/yaml.v3"
)

// Config describes a browser session in a file. Durations are Go duration
// strings such as "30s".
//
//	browser: chrome
//	headless: true
//	driver:
//	  path: /usr/local/bin/chromedriver
//	timeouts:
//	  click: 5s
//	  page_load: 1m
type Config struct {
	Browser  string        `yaml:"browser"`
	Headless bool          `yaml:"headless"`
	Args     []string      `yaml:"args,omitempty"`
	Binary   string        `yaml:"binary,omitempty"`
	Driver   DriverConfig  `yaml:"driver"`
	Remote   string        `yaml:"remote,omitempty"`
	Sauce    *SauceConfig  `yaml:"sauce,omitempty"`
	Proxy    *ProxyConfig  `yaml:"proxy,omitempty"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Debug    bool          `yaml:"debug,omitempty"`
}

// DriverConfig locates the local driver service.
type DriverConfig struct {
	// Path is the driver executable. Empty means InstallDir or the PATH.
	Path string `yaml:"path,omitempty"`
	// InstallDir enables downloading the driver into the directory.
	InstallDir  string `yaml:"install_dir,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	SeleniumJar string `yaml:"selenium_jar,omitempty"`
	FrameBuffer bool   `yaml:"frame_buffer,omitempty"`
}

// SauceConfig runs the session on Sauce Labs. Empty credentials are read
// from SAUCE_USERNAME and SAUCE_ACCESS_KEY.
type SauceConfig struct {
	User      string `yaml:"user,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	Platform  string `yaml:"platform,omitempty"`
	Version   string `yaml:"version,omitempty"`
	Build     string `yaml:"build,omitempty"`
	TestName  string `yaml:"test_name,omitempty"`

	// ConnectPath is a Sauce Connect Proxy binary to tunnel through.
	ConnectPath string `yaml:"connect_path,omitempty"`
}

// ProxyConfig is the browser's proxy.
type ProxyConfig struct {
	// Type is one of direct, manual, autodetect, system or pac.
	Type     string   `yaml:"type"`
	HTTP     string   `yaml:"http,omitempty"`
	SSL      string   `yaml:"ssl,omitempty"`
	SOCKS    string   `yaml:"socks,omitempty"`
	NoProxy  []string `yaml:"no_proxy,omitempty"`
	PACURL   string   `yaml:"pac_url,omitempty"`
	SOCKSVer int      `yaml:"socks_version,omitempty"`
}

// TimeoutConfig holds session and helper timeouts. Zero values keep the
// defaults.
type TimeoutConfig struct {
	Click        time.Duration `yaml:"click,omitempty"`
	Wait         time.Duration `yaml:"wait,omitempty"`
	PageLoad     time.Duration `yaml:"page_load,omitempty"`
	ImplicitWait time.Duration `yaml:"implicit_wait,omitempty"`
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseConfig decodes and validates a YAML Config. Unknown fields are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	c := &Config{Browser: Chrome}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document decodes to io.EOF and keeps the defaults.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the browser name, proxy type and timeouts.
func (c *Config) Validate() error {
	if _, err := canonicalBrowser(c.Browser); err != nil {
		return err
	}
	if c.Remote != "" && c.Sauce != nil {
		return fmt.Errorf("%w: remote and sauce are mutually exclusive", ErrInvalidValue)
	}
	if c.Proxy != nil {
		switch selenium.ProxyType(c.Proxy.Type) {
		case selenium.Direct, selenium.Manual, selenium.Autodetect, selenium.System, selenium.PAC:
		default:
			return fmt.Errorf("%w: proxy type %q", ErrInvalidValue, c.Proxy.Type)
		}
	}
	for name, d := range map[string]time.Duration{
		"click":         c.Timeouts.Click,
		"wait":          c.Timeouts.Wait,
		"page_load":     c.Timeouts.PageLoad,
		"implicit_wait": c.Timeouts.ImplicitWait,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s timeout must not be negative", ErrInvalidValue, name)
		}
	}
	return nil
}

// DriverOptions converts the file settings to NewDriver options.
func (c *Config) DriverOptions() []DriverOption {
	var opts []DriverOption
	if c.Headless {
		opts = append(opts, Headless())
	}
	if len(c.Args) > 0 {
		opts = append(opts, BrowserArgs(c.Args...))
	}
	if c.Binary != "" {
		opts = append(opts, BrowserBinary(c.Binary))
	}
	if c.Driver.Path != "" {
		opts = append(opts, ExecutablePath(c.Driver.Path))
	}
	if c.Driver.InstallDir != "" {
		opts = append(opts, AutoInstall(c.Driver.InstallDir))
	}
	if c.Driver.Port != 0 {
		opts = append(opts, Port(c.Driver.Port))
	}
	if c.Driver.SeleniumJar != "" {
		opts = append(opts, SeleniumServer(c.Driver.SeleniumJar))
	}
	if c.Driver.FrameBuffer {
		opts = append(opts, FrameBuffer())
	}
	if c.Remote != "" {
		opts = append(opts, Remote(c.Remote))
	}
	if s := c.Sauce; s != nil {
		user, key := s.User, s.AccessKey
		if user == "" {
			user = os.Getenv("SAUCE_USERNAME")
		}
		if key == "" {
			key = os.Getenv("SAUCE_ACCESS_KEY")
		}
		opts = append(opts, Sauce(user, key, sauce.Capabilities{
			Platform:    s.Platform,
			Version:     s.Version,
			BuildNumber: s.Build,
			TestName:    s.TestName,
		}))
		if s.ConnectPath != "" {
			opts = append(opts, SauceTunnel(s.ConnectPath))
		}
	}
	if p := c.Proxy; p != nil {
		opts = append(opts, Proxy(selenium.Proxy{
			Type:          selenium.ProxyType(p.Type),
			HTTP:          p.HTTP,
			SSL:           p.SSL,
			SOCKS:         p.SOCKS,
			SOCKSVersion:  p.SOCKSVer,
			NoProxy:       p.NoProxy,
			AutoconfigURL: p.PACURL,
		}))
	}
	if c.Timeouts.PageLoad > 0 {
		opts = append(opts, PageLoadTimeout(c.Timeouts.PageLoad))
	}
	if c.Timeouts.ImplicitWait > 0 {
		opts = append(opts, ImplicitWait(c.Timeouts.ImplicitWait))
	}
	return opts
}

// ToolsOptions converts the file settings to New options.
func (c *Config) ToolsOptions() []ToolsOption {
	var opts []ToolsOption
	if c.Timeouts.Click > 0 {
		opts = append(opts, WithClickTimeout(c.Timeouts.Click))
	}
	if c.Timeouts.Wait > 0 {
		opts = append(opts, WithWaitTimeout(c.Timeouts.Wait))
	}
	return opts
}

// Launch starts the configured browser. Debug is not applied here: debug
// logging is process-wide, so callers honoring it call SetDebug once before
// starting sessions.
func (c *Config) Launch() (*Tools, error) {
	return Launch(c.Browser, c.DriverOptions(), c.ToolsOptions())
}
