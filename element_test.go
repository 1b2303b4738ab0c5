package stool

import (
	"errors"
	"strings"
	"testing"

	"github.com/tebeka/selenium"
)

func mustLocator(t *testing.T, s string) Locator {
	t.Helper()
	loc, err := ParseLocator(s)
	if err != nil {
		t.Fatalf("ParseLocator(%q) returned error: %v", s, err)
	}
	return loc
}

func TestElement(t *testing.T) {
	wd := newDriver()
	btn := newElement("button", nil)
	wd.add(selenium.ByID, "go", btn)
	tools := newTools(wd)

	got, err := tools.Element(mustLocator(t, "id=go"))
	if err != nil {
		t.Fatalf("Element(id=go) returned error: %v", err)
	}
	if got != selenium.WebElement(btn) {
		t.Errorf("Element(id=go) returned %v, want the button", got)
	}

	_, err = tools.Element(mustLocator(t, "id=missing"))
	if !errors.Is(err, ErrNoSuchElement) {
		t.Errorf("Element(id=missing) returned error %v, want ErrNoSuchElement", err)
	}

	wd.findErr = errors.New("invalid session id")
	if _, err := tools.Element(mustLocator(t, "id=go")); err == nil || errors.Is(err, ErrNoSuchElement) {
		t.Errorf("Element() with a broken session returned error %v", err)
	}
}

func TestElements(t *testing.T) {
	wd := newDriver()
	wd.add(selenium.ByClassName, "row", newElement("tr", nil), newElement("tr", nil))
	tools := newTools(wd)

	got, err := tools.Elements(mustLocator(t, "class_name=row"))
	if err != nil {
		t.Fatalf("Elements() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Elements() returned %d elements, want 2", len(got))
	}

	got, err = tools.Elements(mustLocator(t, "class_name=none"))
	if err != nil || len(got) != 0 {
		t.Errorf("Elements() for no match = %v, %v; want none and nil error", got, err)
	}
}

func TestClick(t *testing.T) {
	wd := newDriver()
	btn := newElement("button", nil)
	btn.clickableAfter = 3
	wd.add(selenium.ByID, "go", btn)
	tools := newTools(wd)

	ok, err := tools.Click(mustLocator(t, "go"))
	if err != nil || !ok {
		t.Fatalf("Click() = %t, %v; want true, nil", ok, err)
	}
	if btn.clicks != 1 {
		t.Errorf("button clicked %d times, want 1", btn.clicks)
	}
}

func TestClickTimeout(t *testing.T) {
	wd := newDriver()
	disabled := newElement("button", nil)
	disabled.enabled = false
	wd.add(selenium.ByID, "disabled", disabled)
	tools := newTools(wd)

	for _, loc := range []string{"disabled", "missing"} {
		ok, err := tools.Click(mustLocator(t, loc))
		if err != nil || ok {
			t.Errorf("Click(%s) = %t, %v; want false, nil", loc, ok, err)
		}
	}
	if disabled.clicks != 0 {
		t.Errorf("disabled button clicked %d times", disabled.clicks)
	}
}

func TestWaitForElement(t *testing.T) {
	wd := newDriver()
	div := newElement("div", nil)
	div.clickableAfter = 2
	wd.add(selenium.ByCSSSelector, "div.ready", div)
	tools := newTools(wd)

	got, err := tools.WaitForElement(mustLocator(t, "css_selector=div.ready"), 0)
	if err != nil {
		t.Fatalf("WaitForElement() returned error: %v", err)
	}
	if got != selenium.WebElement(div) {
		t.Errorf("WaitForElement() returned %v, want the div", got)
	}
}

func TestWaitForElementTimeout(t *testing.T) {
	tools := newTools(newDriver())
	_, err := tools.WaitForElement(mustLocator(t, "xpath=//nothing"), 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitForElement() returned error %v, want ErrTimeout", err)
	}
	const want = "element with locator 'xpath=//nothing' was not found within 50ms"
	if !strings.HasPrefix(err.Error(), want) {
		t.Errorf("WaitForElement() error = %q, want prefix %q", err, want)
	}
}

func TestWaitForElementDriverError(t *testing.T) {
	wd := newDriver()
	wd.findErr = errors.New("invalid session id")
	tools := newTools(wd)
	_, err := tools.WaitForElement(mustLocator(t, "q"), 0)
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Errorf("WaitForElement() returned error %v, want the driver error", err)
	}
}

func TestSetVisibility(t *testing.T) {
	wd := newDriver()
	a, b := newElement("div", nil), newElement("div", nil)
	wd.add(selenium.ByClassName, "ad", a, b)
	tools := newTools(wd)

	locs := []Locator{mustLocator(t, "class_name=ad"), mustLocator(t, "class_name=none")}
	if err := tools.SetVisibilityAll(locs, true); err != nil {
		t.Fatalf("SetVisibilityAll(hide) returned error: %v", err)
	}
	if a.displayed || b.displayed {
		t.Error("elements still displayed after hiding")
	}
	if err := tools.SetVisibility(a, false); err != nil {
		t.Fatalf("SetVisibility(show) returned error: %v", err)
	}
	if !a.displayed {
		t.Error("element hidden after showing")
	}
	if got, want := wd.scripts[len(wd.scripts)-1], "arguments[0].style.display = 'block';"; got != want {
		t.Errorf("last script = %q, want %q", got, want)
	}
}
