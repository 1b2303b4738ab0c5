// Package stooltest runs stool against real browsers. The tests live in a
// separate package so other harnesses (a Selenium grid, Sauce Labs) can
// validate their setup with the same suite.
package stooltest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	socks5 "github.com/armon/go-socks5"
	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/sauce"

	"github.com/wanmail/stool"
	"github.com/wanmail/stool/parser"
)

// Config describes the browser under test.
type Config struct {
	Browser    string
	DriverPath string

	// BrowserPath is the browser binary. Empty means the driver's default.
	BrowserPath string

	// ServerURL serves Handler.
	ServerURL string
	Remote    string

	// Sauce runs the browser on Sauce Labs, reaching ServerURL through the
	// Sauce Connect binary at SauceConnectPath.
	Sauce               *sauce.Capabilities
	SauceUser, SauceKey string
	SauceConnectPath    string

	Headless    bool
	FrameBuffer bool
	SkipProxy   bool
}

func runTest(f func(*testing.T, Config), c Config) func(*testing.T) {
	return func(t *testing.T) {
		f(t, c)
	}
}

func (c Config) driverOptions() []stool.DriverOption {
	opts := []stool.DriverOption{stool.PageLoadTimeout(30 * time.Second)}
	if c.Remote != "" {
		opts = append(opts, stool.Remote(c.Remote))
	}
	if c.Sauce != nil {
		opts = append(opts, stool.Sauce(c.SauceUser, c.SauceKey, *c.Sauce))
		if c.SauceConnectPath != "" {
			opts = append(opts, stool.SauceTunnel(c.SauceConnectPath))
		}
	}
	if c.DriverPath != "" {
		opts = append(opts, stool.ExecutablePath(c.DriverPath))
	}
	if c.BrowserPath != "" {
		opts = append(opts, stool.BrowserBinary(c.BrowserPath))
	}
	if c.Headless {
		opts = append(opts, stool.Headless())
	}
	if c.FrameBuffer {
		opts = append(opts, stool.FrameBuffer())
	}
	if c.Browser == stool.Chrome {
		// Test machines run Chrome builds without a setuid sandbox.
		opts = append(opts, stool.BrowserArgs("--no-sandbox"))
	}
	return opts
}

// Launch starts the configured browser and closes it when t ends.
func Launch(t *testing.T, c Config, extra ...stool.DriverOption) *stool.Tools {
	t.Helper()
	tl, err := stool.Launch(c.Browser, append(c.driverOptions(), extra...), []stool.ToolsOption{
		stool.WithClickTimeout(5 * time.Second),
		stool.WithWaitTimeout(5 * time.Second),
	})
	if err != nil {
		t.Fatalf("stool.Launch(%q) returned error: %v", c.Browser, err)
	}
	t.Cleanup(func() {
		if err := tl.Close(); err != nil {
			t.Errorf("Close() returned error: %v", err)
		}
	})
	return tl
}

func get(t *testing.T, tl *stool.Tools, u string) {
	t.Helper()
	if err := tl.Get(u); err != nil {
		t.Fatalf("Get(%q) returned error: %v", u, err)
	}
}

func locator(t *testing.T, s string) stool.Locator {
	t.Helper()
	l, err := stool.ParseLocator(s)
	if err != nil {
		t.Fatalf("ParseLocator(%q) returned error: %v", s, err)
	}
	return l
}

// RunCommonTests runs the tests every browser must pass.
func RunCommonTests(t *testing.T, c Config) {
	t.Run("Get", runTest(testGet, c))
	t.Run("GetHTML", runTest(testGetHTML, c))
	t.Run("Elements", runTest(testElements, c))
	t.Run("Click", runTest(testClick, c))
	t.Run("WaitForElement", runTest(testWaitForElement, c))
	t.Run("Visibility", runTest(testVisibility, c))
	t.Run("Fill", runTest(testFill, c))
	t.Run("SelectOption", runTest(testSelectOption, c))
	t.Run("Parse", runTest(testParse, c))
	t.Run("Cookies", runTest(testCookies, c))
	t.Run("PressKeys", runTest(testPressKeys, c))
	t.Run("ExecuteJS", runTest(testExecuteJS, c))
	t.Run("Screenshot", runTest(testScreenshot, c))
	t.Run("BrowserVersion", runTest(testBrowserVersion, c))
	if !c.SkipProxy {
		t.Run("Proxy", runTest(testProxy, c))
	}
}

func testGet(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	u, err := tl.URL()
	if err != nil {
		t.Fatalf("URL() returned error: %v", err)
	}
	if !strings.HasPrefix(u, c.ServerURL) {
		t.Fatalf("URL() = %q, want prefix %q", u, c.ServerURL)
	}
	title, err := tl.Title()
	if err != nil {
		t.Fatalf("Title() returned error: %v", err)
	}
	if want := "Stool Test Suite"; title != want {
		t.Errorf("Title() = %q, want %q", title, want)
	}
	if tl.SessionID() == "" {
		t.Error("SessionID() is empty")
	}
}

func testGetHTML(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, "<html><head><title>Inline</title></head><body><p id=\"p\">50% done</p></body></html>")

	title, err := tl.Title()
	if err != nil {
		t.Fatalf("Title() returned error: %v", err)
	}
	if title != "Inline" {
		t.Errorf("Title() = %q, want %q", title, "Inline")
	}
	e, err := tl.Element(locator(t, "id=p"))
	if err != nil {
		t.Fatalf("Element(id=p) returned error: %v", err)
	}
	text, err := e.Text()
	if err != nil {
		t.Fatalf("Text() returned error: %v", err)
	}
	if text != "50% done" {
		t.Errorf("Text() = %q, want %q", text, "50% done")
	}
}

func testElements(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	links, err := tl.Elements(locator(t, "tag_name=a"))
	if err != nil {
		t.Fatalf("Elements(tag_name=a) returned error: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("Elements(tag_name=a) returned %d elements, want 2", len(links))
	}
	none, err := tl.Elements(locator(t, "class_name=missing"))
	if err != nil {
		t.Fatalf("Elements(class_name=missing) returned error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Elements(class_name=missing) returned %d elements", len(none))
	}
}

func testClick(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	ok, err := tl.Click(locator(t, "link_text=other page"))
	if err != nil {
		t.Fatalf("Click(link_text=other page) returned error: %v", err)
	}
	if !ok {
		t.Fatal("Click(link_text=other page) = false")
	}
	if err := tl.WebDriver().WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		title, err := wd.Title()
		return title == "Stool Test Suite - Other Page", err
	}, 10*time.Second); err != nil {
		t.Fatalf("other page did not load: %v", err)
	}

	ok, err = tl.Click(locator(t, "id=missing"))
	if err != nil {
		t.Fatalf("Click(id=missing) returned error: %v", err)
	}
	if ok {
		t.Error("Click(id=missing) = true")
	}
}

func testWaitForElement(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL+"/delayed")

	e, err := tl.WaitForElement(locator(t, "id=late"), 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForElement(id=late) returned error: %v", err)
	}
	if text, _ := e.Text(); text != "here" {
		t.Errorf("WaitForElement(id=late) text = %q", text)
	}
}

func testVisibility(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	loc := locator(t, "id=intro")
	if err := tl.SetVisibilityAll([]stool.Locator{loc}, true); err != nil {
		t.Fatalf("SetVisibilityAll(hide) returned error: %v", err)
	}
	e, err := tl.Element(loc)
	if err != nil {
		t.Fatalf("Element(id=intro) returned error: %v", err)
	}
	if shown, _ := e.IsDisplayed(); shown {
		t.Error("id=intro still displayed after hiding it")
	}
	if err := tl.SetVisibility(e, false); err != nil {
		t.Fatalf("SetVisibility(show) returned error: %v", err)
	}
	if shown, _ := e.IsDisplayed(); !shown {
		t.Error("id=intro hidden after showing it")
	}
}

func testFill(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	if err := tl.Fill(map[string]interface{}{
		"q":     "golang",
		"count": 3,
		"s":     "second_value",
		"size":  "l",
		"agree": true,
	}, stool.ByValue); err != nil {
		t.Fatalf("Fill() returned error: %v", err)
	}
	if _, err := tl.Click(locator(t, "id=submit")); err != nil {
		t.Fatalf("Click(id=submit) returned error: %v", err)
	}
	e, err := tl.WaitForElement(locator(t, "id=result"), 10*time.Second)
	if err != nil {
		t.Fatalf("WaitForElement(id=result) returned error: %v", err)
	}
	got, err := e.Text()
	if err != nil {
		t.Fatalf("Text() returned error: %v", err)
	}
	if want := "agree=on count=3 q=golang s=second_value size=l"; got != want {
		t.Errorf("submitted form = %q, want %q", got, want)
	}
}

func testSelectOption(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	sel, err := tl.Element(locator(t, "name=s"))
	if err != nil {
		t.Fatalf("Element(name=s) returned error: %v", err)
	}
	for _, tc := range []struct {
		value interface{}
		by    stool.SelectBy
		want  string
	}{
		{"Second Value", stool.ByText, "second_value"},
		{0, stool.ByIndex, "first_value"},
		{"second_value", stool.ByValue, "second_value"},
	} {
		if err := tl.SelectOption(sel, tc.value, tc.by); err != nil {
			t.Fatalf("SelectOption(%v, %s) returned error: %v", tc.value, tc.by, err)
		}
		got, err := tl.ExecuteJS("document.getElementsByName('s')[0].value")
		if err != nil {
			t.Fatalf("ExecuteJS() returned error: %v", err)
		}
		if got != tc.want {
			t.Errorf("after SelectOption(%v, %s) value = %q, want %q", tc.value, tc.by, got, tc.want)
		}
	}
}

func testParse(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	options, err := tl.Dropdown(locator(t, "name=s"))
	if err != nil {
		t.Fatalf("Dropdown(name=s) returned error: %v", err)
	}
	wantOptions := []parser.Option{{Text: "First Value", Value: "first_value"}, {Text: "Second Value", Value: "second_value"}}
	if diff := cmp.Diff(wantOptions, options); diff != "" {
		t.Errorf("Dropdown(name=s) returned diff (-want/+got):\n%s", diff)
	}

	table, err := tl.Table(locator(t, "id=prices"))
	if err != nil {
		t.Fatalf("Table(id=prices) returned error: %v", err)
	}
	wantTable := &parser.Table{Headers: []string{"Item", "Price"}, Rows: [][]string{{"Tea", "2"}, {"Coffee", "3"}}}
	if diff := cmp.Diff(wantTable, table); diff != "" {
		t.Errorf("Table(id=prices) returned diff (-want/+got):\n%s", diff)
	}
}

func testCookies(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	got, err := tl.Cookies()
	if err != nil {
		t.Fatalf("Cookies() returned error: %v", err)
	}
	want := map[string]string{"cookie-0": "value-0", "cookie-1": "value-1", "cookie-2": "value-2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cookies() returned diff (-want/+got):\n%s", diff)
	}

	if err := tl.SetCookies(map[string]string{"token": "abc"}, stool.DropKeys("cookie-0", "cookie-1")); err != nil {
		t.Fatalf("SetCookies() returned error: %v", err)
	}
	if got, err = tl.Cookies(); err != nil {
		t.Fatalf("Cookies() returned error: %v", err)
	}
	want = map[string]string{"cookie-2": "value-2", "token": "abc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cookies() after SetCookies returned diff (-want/+got):\n%s", diff)
	}

	if err := tl.SetCookies(nil, stool.DropAll()); err != nil {
		t.Fatalf("SetCookies(DropAll) returned error: %v", err)
	}
	if got, _ = tl.Cookies(); len(got) != 0 {
		t.Errorf("Cookies() after DropAll = %v", got)
	}
}

func testPressKeys(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	e, err := tl.Element(locator(t, "name=q"))
	if err != nil {
		t.Fatalf("Element(name=q) returned error: %v", err)
	}
	if err := e.SendKeys("go"); err != nil {
		t.Fatalf("SendKeys() returned error: %v", err)
	}
	if err := tl.PressKeys([]string{"backspace"}); err != nil {
		t.Fatalf("PressKeys(backspace) returned error: %v", err)
	}
	got, err := e.GetAttribute("value")
	if err != nil {
		t.Fatalf("GetAttribute(value) returned error: %v", err)
	}
	if got != "g" {
		t.Errorf("input value = %q, want %q", got, "g")
	}
}

func testExecuteJS(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	for _, tc := range []struct {
		in, want string
	}{
		{"document.title", "Stool Test Suite"},
		{"return 1 + 1", "2"},
		{"null", ""},
	} {
		got, err := tl.ExecuteJS(tc.in)
		if err != nil {
			t.Fatalf("ExecuteJS(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ExecuteJS(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

var pngHeader = "\x89PNG\r\n\x1a\n"

func testScreenshot(t *testing.T, c Config) {
	tl := Launch(t, c)
	get(t, tl, c.ServerURL)

	page, err := tl.Screenshot(nil)
	if err != nil {
		t.Fatalf("Screenshot(nil) returned error: %v", err)
	}
	if !strings.HasPrefix(string(page), pngHeader) {
		t.Errorf("Screenshot(nil) is not a PNG")
	}
	loc := locator(t, "id=prices")
	elem, err := tl.Screenshot(&loc)
	if err != nil {
		t.Fatalf("Screenshot(id=prices) returned error: %v", err)
	}
	if !strings.HasPrefix(string(elem), pngHeader) {
		t.Errorf("Screenshot(id=prices) is not a PNG")
	}
}

func v(s string) semver.Version {
	return semver.MustParse(s)
}

func testBrowserVersion(t *testing.T, c Config) {
	tl := Launch(t, c)
	got, err := tl.BrowserVersion()
	if err != nil {
		t.Fatalf("BrowserVersion() returned error: %v", err)
	}
	if got.LT(v("1.0.0")) {
		t.Errorf("BrowserVersion() = %s", got)
	}
	t.Logf("%s %s", c.Browser, got)
}

const proxyPageContents = "You are viewing a proxied page"

// addrRewriter rewrites all requested addresses to the one of the URL.
type addrRewriter struct{ u *url.URL }

func (a *addrRewriter) Rewrite(ctx context.Context, _ *socks5.Request) (context.Context, *socks5.AddrSpec) {
	port, err := strconv.Atoi(a.u.Port())
	if err != nil {
		panic(err)
	}
	return ctx, &socks5.AddrSpec{
		FQDN: a.u.Hostname(),
		Port: port,
	}
}

func testProxy(t *testing.T, c Config) {
	// A different server that answers only if the proxy is used.
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>"+proxyPageContents+"</body></html>")
	}))
	defer s.Close()

	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatalf("url.Parse(%q) returned error: %v", s.URL, err)
	}

	t.Run("HTTP", func(t *testing.T) {
		runTestProxy(t, c, selenium.Proxy{
			Type: selenium.Manual,
			HTTP: u.Host,
		})
	})

	t.Run("SOCKS", func(t *testing.T) {
		socks, err := socks5.New(&socks5.Config{
			Rewriter: &addrRewriter{u},
		})
		if err != nil {
			t.Fatalf("socks5.New(_) returned error: %v", err)
		}
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("net.Listen(_, _) return error: %v", err)
		}

		// Serve until the listener is closed at the end of the test.
		done := make(chan struct{})
		go func() {
			err := socks.Serve(l)
			select {
			case <-done:
				return
			default:
			}
			if err != nil {
				t.Errorf("socks.Serve(_) returned error: %v", err)
			}
		}()
		defer func() {
			close(done)
			l.Close()
		}()

		runTestProxy(t, c, selenium.Proxy{
			Type:         selenium.Manual,
			SOCKS:        l.Addr().String(),
			SOCKSVersion: 5,
		})
	})
}

func runTestProxy(t *testing.T, c Config, p selenium.Proxy) {
	opts := []stool.DriverOption{stool.Proxy(p)}
	// Browsers bypass proxies for loopback addresses by default.
	switch c.Browser {
	case stool.Chrome:
		opts = append(opts, stool.BrowserArgs("--proxy-bypass-list=<-loopback>"))
	case stool.Firefox:
		opts = append(opts, stool.BrowserPrefs(map[string]interface{}{
			"network.proxy.no_proxies_on":            "",
			"network.proxy.allow_hijacking_localhost": true,
		}))
	}
	tl := Launch(t, c, opts...)
	get(t, tl, c.ServerURL)

	source, err := tl.Text()
	if err != nil {
		t.Fatalf("Text() returned error: %v", err)
	}
	if !strings.Contains(source, proxyPageContents) {
		if strings.Contains(source, "Stool Test Suite") {
			t.Fatal("Got non-proxied page.")
		}
		t.Fatalf("Got page: %s\n\nExpected: %q", source, proxyPageContents)
	}
}
