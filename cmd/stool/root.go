package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/wanmail/stool"
)

// rootOptions are the flags shared by the subcommands that start a browser.
type rootOptions struct {
	configPath string
	browser    string
	headless   bool
	driverPath string
	installDir string
	remote     string
	debug      bool
}

// launch starts a browser for a command. Tests replace it.
var launch = func(c *stool.Config) (*stool.Tools, error) {
	return c.Launch()
}

// setDebug is called once per command, before any browser starts.
var setDebug = stool.SetDebug

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "stool",
		Short: "stool drives a WebDriver browser",
		Long: `stool drives a browser through WebDriver.

Examples:
  stool visit https://example.com
  stool screenshot https://example.com -o page.png
  stool parse https://example.com dropdown id=country
  stool cookies https://example.com --set session=abc
  stool install chrome firefox
  stool serve --addr :8080`,
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "YAML file describing the browser session")
	f.StringVar(&o.browser, "browser", stool.Chrome, "browser to start")
	f.BoolVar(&o.headless, "headless", false, "run the browser without a window")
	f.StringVar(&o.driverPath, "driver-path", "", "path of the chromedriver or geckodriver binary")
	f.StringVar(&o.installDir, "install-dir", "", "download the driver into this directory when needed")
	f.StringVar(&o.remote, "remote", "", "URL of a running WebDriver server")
	f.BoolVar(&o.debug, "debug", false, "log the WebDriver wire traffic")
	f.AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(
		newVisitCmd(o),
		newScreenshotCmd(o),
		newParseCmd(o),
		newCookiesCmd(o),
		newInstallCmd(),
		newServeCmd(o),
	)
	return cmd
}

// config merges the config file with the flags set on cmd.
func (o *rootOptions) config(cmd *cobra.Command) (*stool.Config, error) {
	c := &stool.Config{Browser: stool.Chrome}
	if o.configPath != "" {
		var err error
		if c, err = stool.LoadConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if o.configPath == "" || flags.Changed("browser") {
		c.Browser = o.browser
	}
	if flags.Changed("headless") {
		c.Headless = o.headless
	}
	if flags.Changed("driver-path") {
		c.Driver.Path = o.driverPath
	}
	if flags.Changed("install-dir") {
		c.Driver.InstallDir = o.installDir
	}
	if flags.Changed("remote") {
		c.Remote = o.remote
	}
	if flags.Changed("debug") {
		c.Debug = o.debug
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// withBrowser starts the configured browser, runs fn and closes it.
func (o *rootOptions) withBrowser(cmd *cobra.Command, fn func(*stool.Tools) error) error {
	c, err := o.config(cmd)
	if err != nil {
		return err
	}
	if c.Debug {
		setDebug(true)
	}
	t, err := launch(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			glog.Warningf("error closing the browser: %v", err)
		}
	}()
	return fn(t)
}
