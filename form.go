package stool

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tebeka/selenium"
)

// Fill sets form fields by their name attribute. Select elements take a
// single value or a []string or []int of values matched according to by.
// Radio groups take the value of the radio to check, checkboxes a bool and
// every other field a string, integer, float or bool that is typed into it.
// Fields are filled in sorted name order.
func (t *Tools) Fill(values map[string]interface{}, by SelectBy) error {
	if !by.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidSelector, by)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := t.fillField(name, values[name], by); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

func (t *Tools) fillField(name string, value interface{}, by SelectBy) error {
	elems, err := t.Elements(Locator{Type: LocatorName, By: selenium.ByName, Value: name})
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		return fmt.Errorf("%w: name=%s", ErrNoSuchElement, name)
	}
	elem := elems[0]

	tag, err := elem.TagName()
	if err != nil {
		return err
	}
	if strings.ToLower(tag) == "select" {
		return t.fillSelect(elem, value, by)
	}

	typ, err := elem.GetAttribute("type")
	if err != nil {
		typ = ""
	}
	switch strings.ToLower(typ) {
	case "radio":
		return fillRadio(elems, value)
	case "checkbox":
		checked, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: checkbox %s takes a bool, got %T", ErrInvalidValue, name, value)
		}
		return setSelected(elem, checked)
	}

	text, ok := formatValue(value)
	if !ok {
		return fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, value)
	}
	if err := elem.Clear(); err != nil {
		return err
	}
	debugLog("typing into %s", name)
	return elem.SendKeys(text)
}

func (t *Tools) fillSelect(elem selenium.WebElement, value interface{}, by SelectBy) error {
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			if err := t.SelectOption(elem, s, by); err != nil {
				return err
			}
		}
		return nil
	case []int:
		for _, i := range v {
			var val interface{} = i
			if by != ByIndex {
				val = strconv.Itoa(i)
			}
			if err := t.SelectOption(elem, val, by); err != nil {
				return err
			}
		}
		return nil
	}
	if by != ByIndex {
		text, ok := formatValue(value)
		if !ok {
			return fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, value)
		}
		value = text
	}
	return t.SelectOption(elem, value, by)
}

func fillRadio(group []selenium.WebElement, value interface{}) error {
	want, ok := formatValue(value)
	if !ok {
		return fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, value)
	}
	for _, r := range group {
		v, err := r.GetAttribute("value")
		if err != nil {
			continue
		}
		if v == want {
			return setSelected(r, true)
		}
	}
	return fmt.Errorf("%w: radio with value %q", ErrNoSuchElement, want)
}

// formatValue renders a field value as the text to type.
func formatValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int8, int16, int32, int64:
		return fmt.Sprint(v), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}
