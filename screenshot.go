package stool

import (
	"fmt"
)

// Screenshot returns a PNG image. With a locator it captures that element,
// otherwise the window is resized to the size of the page body and the
// whole page is captured.
func (t *Tools) Screenshot(loc *Locator) ([]byte, error) {
	if loc != nil {
		elem, err := t.Element(*loc)
		if err != nil {
			return nil, err
		}
		return elem.Screenshot(true)
	}

	width, err := t.scriptInt("return document.body.offsetWidth;")
	if err != nil {
		return nil, fmt.Errorf("reading page width: %w", err)
	}
	height, err := t.scriptInt("return document.body.offsetHeight;")
	if err != nil {
		return nil, fmt.Errorf("reading page height: %w", err)
	}
	if width > 0 && height > 0 {
		if err := t.wd.ResizeWindow("", width, height); err != nil {
			return nil, err
		}
	}
	return t.wd.Screenshot()
}

// scriptInt runs a script returning a number. JSON numbers decode as
// float64.
func (t *Tools) scriptInt(script string) (int, error) {
	v, err := t.wd.ExecuteScript(script, nil)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("script returned %T, want a number", v)
}
