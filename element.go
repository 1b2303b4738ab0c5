package stool

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

// Element returns the first element matching loc.
func (t *Tools) Element(loc Locator) (selenium.WebElement, error) {
	elem, err := t.wd.FindElement(loc.By, loc.Value)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, loc)
		}
		return nil, err
	}
	return elem, nil
}

// Elements returns all the elements matching loc. No match is not an error.
func (t *Tools) Elements(loc Locator) ([]selenium.WebElement, error) {
	elems, err := t.wd.FindElements(loc.By, loc.Value)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, err
	}
	return elems, nil
}

// waitFor polls until ready accepts the element matching loc or timeout
// elapses. It reports whether the wait timed out separately from errors
// returned by the driver.
func (t *Tools) waitFor(loc Locator, timeout time.Duration, ready func(selenium.WebElement) (bool, error)) (elem selenium.WebElement, timedOut bool, err error) {
	var condErr error
	cond := func(wd selenium.WebDriver) (bool, error) {
		e, err := wd.FindElement(loc.By, loc.Value)
		if err != nil {
			if isNoSuchElement(err) {
				return false, nil
			}
			condErr = err
			return false, err
		}
		ok, err := ready(e)
		if err != nil {
			// The element went stale between lookup and inspection; look it up
			// again on the next poll.
			debugLog("waiting for %s: %v", loc, err)
			return false, nil
		}
		if ok {
			elem = e
		}
		return ok, nil
	}
	if err := t.wd.WaitWithTimeout(cond, timeout); err != nil {
		if condErr != nil {
			return nil, false, condErr
		}
		return nil, true, err
	}
	return elem, false, nil
}

func clickable(e selenium.WebElement) (bool, error) {
	displayed, err := e.IsDisplayed()
	if err != nil || !displayed {
		return false, err
	}
	return e.IsEnabled()
}

func visible(e selenium.WebElement) (bool, error) {
	return e.IsDisplayed()
}

// Click waits for the element matching loc to be visible and enabled, then
// clicks it. It returns false without an error when the element did not
// become clickable within the click timeout.
func (t *Tools) Click(loc Locator) (bool, error) {
	elem, timedOut, err := t.waitFor(loc, t.clickTimeout, clickable)
	if timedOut {
		debugLog("%s not clickable within %v", loc, t.clickTimeout)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := elem.Click(); err != nil {
		return false, err
	}
	glog.Infof("clicked on value:%s attribute:%s", loc.Value, loc.Type)
	return true, nil
}

// WaitForElement waits for an element matching loc to be present and
// visible. A zero timeout means the Tools wait timeout.
func (t *Tools) WaitForElement(loc Locator, timeout time.Duration) (selenium.WebElement, error) {
	if timeout <= 0 {
		timeout = t.waitTimeout
	}
	elem, timedOut, err := t.waitFor(loc, timeout, visible)
	if timedOut {
		return nil, fmt.Errorf("element with locator '%s' was not found within %v: %w", loc, timeout, ErrTimeout)
	}
	if err != nil {
		return nil, err
	}
	return elem, nil
}

// SetVisibility hides or shows an element by setting its display style.
func (t *Tools) SetVisibility(elem selenium.WebElement, hide bool) error {
	display := "block"
	if hide {
		display = "none"
	}
	_, err := t.wd.ExecuteScript(fmt.Sprintf("arguments[0].style.display = '%s';", display), []interface{}{elem})
	return err
}

// SetVisibilityAll hides or shows every element matching any of locs.
func (t *Tools) SetVisibilityAll(locs []Locator, hide bool) error {
	for _, loc := range locs {
		elems, err := t.Elements(loc)
		if err != nil {
			return err
		}
		for _, e := range elems {
			if err := t.SetVisibility(e, hide); err != nil {
				return fmt.Errorf("error changing visibility of %s: %w", loc, err)
			}
		}
	}
	return nil
}
