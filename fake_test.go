package stool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
)

// fakeElement is an in-memory WebElement. Methods not overridden panic
// through the nil embedded interface.
type fakeElement struct {
	selenium.WebElement

	tag       string
	attrs     map[string]string
	text      string
	html      string
	displayed bool
	enabled   bool
	selected  bool
	// children are returned by FindElements, keyed by "by=value".
	children map[string][]*fakeElement

	clicks  int
	cleared bool
	typed   string
	png     []byte
	// clickableAfter makes IsDisplayed report false for that many calls.
	clickableAfter int
}

func newElement(tag string, attrs map[string]string) *fakeElement {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &fakeElement{tag: tag, attrs: attrs, displayed: true, enabled: true}
}

func (e *fakeElement) TagName() (string, error) { return e.tag, nil }

func (e *fakeElement) GetAttribute(name string) (string, error) {
	v, ok := e.attrs[name]
	if !ok {
		return "", fmt.Errorf("nil return value")
	}
	return v, nil
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) IsDisplayed() (bool, error) {
	if e.clickableAfter > 0 {
		e.clickableAfter--
		return false, nil
	}
	return e.displayed, nil
}

func (e *fakeElement) IsEnabled() (bool, error) { return e.enabled, nil }
func (e *fakeElement) IsSelected() (bool, error) { return e.selected, nil }

func (e *fakeElement) Click() error {
	e.clicks++
	if e.attrs["type"] == "checkbox" || e.tag == "option" {
		e.selected = !e.selected
	} else {
		e.selected = true
	}
	return nil
}

func (e *fakeElement) Clear() error {
	e.cleared = true
	e.typed = ""
	return nil
}

func (e *fakeElement) SendKeys(keys string) error {
	e.typed += keys
	return nil
}

func (e *fakeElement) FindElements(by, value string) ([]selenium.WebElement, error) {
	return asWebElements(e.children[by+"="+value]), nil
}

func (e *fakeElement) Screenshot(scroll bool) ([]byte, error) { return e.png, nil }

func asWebElements(elems []*fakeElement) []selenium.WebElement {
	out := make([]selenium.WebElement, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out
}

// fakeDriver is an in-memory WebDriver serving the elements registered in
// elements, keyed by "by=value".
type fakeDriver struct {
	selenium.WebDriver

	elements map[string][]*fakeElement
	findErr  error

	url      string
	title    string
	source   string
	gets     []string
	getErr   error
	cookies  []selenium.Cookie
	caps     selenium.Capabilities
	quits    int
	keysDown []string
	keysUp   []string
	size     [2]int
	png      []byte

	scripts []string
	args    [][]interface{}
	// results maps scripts to the values ExecuteScript returns.
	results map[string]interface{}
}

func newDriver() *fakeDriver {
	return &fakeDriver{
		elements: map[string][]*fakeElement{},
		results:  map[string]interface{}{},
	}
}

func (wd *fakeDriver) add(by, value string, elems ...*fakeElement) {
	wd.elements[by+"="+value] = append(wd.elements[by+"="+value], elems...)
}

func (wd *fakeDriver) SessionID() string { return "fake-session" }

func (wd *fakeDriver) Get(u string) error {
	if wd.getErr != nil {
		return wd.getErr
	}
	wd.gets = append(wd.gets, u)
	wd.url = u
	if u == "about:blank" {
		wd.title = ""
	}
	return nil
}

func (wd *fakeDriver) CurrentURL() (string, error) { return wd.url, nil }
func (wd *fakeDriver) Title() (string, error) { return wd.title, nil }
func (wd *fakeDriver) PageSource() (string, error) { return wd.source, nil }

func (wd *fakeDriver) Capabilities() (selenium.Capabilities, error) { return wd.caps, nil }

func (wd *fakeDriver) Quit() error {
	wd.quits++
	return nil
}

func (wd *fakeDriver) FindElement(by, value string) (selenium.WebElement, error) {
	if wd.findErr != nil {
		return nil, wd.findErr
	}
	elems := wd.elements[by+"="+value]
	if len(elems) == 0 {
		return nil, &selenium.Error{Err: "no such element", Message: fmt.Sprintf("Unable to locate element: %s=%s", by, value)}
	}
	return elems[0], nil
}

func (wd *fakeDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	if wd.findErr != nil {
		return nil, wd.findErr
	}
	return asWebElements(wd.elements[by+"="+value]), nil
}

func (wd *fakeDriver) WaitWithTimeout(cond selenium.Condition, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := cond(wd)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout after %v", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func (wd *fakeDriver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	wd.scripts = append(wd.scripts, script)
	wd.args = append(wd.args, args)
	if script == "return arguments[0].outerHTML;" {
		return args[0].(*fakeElement).html, nil
	}
	if strings.HasPrefix(script, "arguments[0].style.display") {
		e := args[0].(*fakeElement)
		e.displayed = !strings.Contains(script, "'none'")
		return nil, nil
	}
	v, ok := wd.results[script]
	if !ok {
		return nil, errors.New("javascript error: unexpected script")
	}
	return v, nil
}

func (wd *fakeDriver) GetCookies() ([]selenium.Cookie, error) { return wd.cookies, nil }

func (wd *fakeDriver) AddCookie(c *selenium.Cookie) error {
	wd.cookies = append(wd.cookies, *c)
	return nil
}

func (wd *fakeDriver) DeleteAllCookies() error {
	wd.cookies = nil
	return nil
}

func (wd *fakeDriver) DeleteCookie(name string) error {
	var kept []selenium.Cookie
	for _, c := range wd.cookies {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	wd.cookies = kept
	return nil
}

func (wd *fakeDriver) KeyDown(keys string) error {
	wd.keysDown = append(wd.keysDown, keys)
	return nil
}

func (wd *fakeDriver) KeyUp(keys string) error {
	wd.keysUp = append(wd.keysUp, keys)
	return nil
}

func (wd *fakeDriver) ResizeWindow(name string, width, height int) error {
	wd.size = [2]int{width, height}
	return nil
}

func (wd *fakeDriver) Screenshot() ([]byte, error) { return wd.png, nil }

func (wd *fakeDriver) SetPageLoadTimeout(time.Duration) error { return nil }
func (wd *fakeDriver) SetImplicitWaitTimeout(time.Duration) error { return nil }

// newTools returns Tools over a fake driver with short timeouts.
func newTools(wd *fakeDriver, opts ...ToolsOption) *Tools {
	opts = append([]ToolsOption{
		WithClickTimeout(50 * time.Millisecond),
		WithWaitTimeout(50 * time.Millisecond),
	}, opts...)
	t, err := New(wd, opts...)
	if err != nil {
		panic(err)
	}
	return t
}
