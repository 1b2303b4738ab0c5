package stool

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// SelectBy chooses how SelectOption matches a dropdown option.
type SelectBy int

// Ways of selecting dropdown options.
const (
	// ByValue matches the option's value attribute.
	ByValue SelectBy = iota
	// ByText matches the option's visible text, ignoring surrounding and
	// repeated whitespace.
	ByText
	// ByIndex selects the n-th option, counting from zero.
	ByIndex
)

func (b SelectBy) String() string {
	switch b {
	case ByValue:
		return "value"
	case ByText:
		return "text"
	case ByIndex:
		return "index"
	}
	return fmt.Sprintf("SelectBy(%d)", int(b))
}

func (b SelectBy) valid() bool {
	return b >= ByValue && b <= ByIndex
}

// SelectOption selects an option of a <select> element. For ByIndex, value
// must be an int; otherwise it is compared as a string.
func (t *Tools) SelectOption(elem selenium.WebElement, value interface{}, by SelectBy) error {
	if elem == nil {
		return fmt.Errorf("%w: nil element", ErrInvalidElement)
	}
	if !by.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidSelector, by)
	}
	if _, ok := value.(int); by == ByIndex && !ok {
		return fmt.Errorf("%w: selecting by index needs an int, got %T", ErrInvalidValue, value)
	}
	s, err := newSelect(elem)
	if err != nil {
		return err
	}
	switch by {
	case ByIndex:
		return s.selectByIndex(value.(int))
	case ByText:
		return s.selectByText(fmt.Sprint(value))
	default:
		return s.selectByValue(fmt.Sprint(value))
	}
}

// selectElement is a <select> element.
type selectElement struct {
	elem     selenium.WebElement
	multiple bool
}

func newSelect(elem selenium.WebElement) (*selectElement, error) {
	tag, err := elem.TagName()
	if err != nil {
		return nil, err
	}
	if strings.ToLower(tag) != "select" {
		return nil, fmt.Errorf(`%w: element should have been "select" but was %q`, ErrInvalidElement, tag)
	}
	s := &selectElement{elem: elem}
	// Drivers report a missing boolean attribute as an empty value or an
	// error, and a present one as "true" or the attribute name.
	if mult, err := elem.GetAttribute("multiple"); err == nil {
		m := strings.ToLower(mult)
		s.multiple = m != "" && m != "false" && m != "null"
	}
	return s, nil
}

func (s *selectElement) options() ([]selenium.WebElement, error) {
	return s.elem.FindElements(selenium.ByTagName, "option")
}

func (s *selectElement) selectByValue(value string) error {
	opts, err := s.elem.FindElements(selenium.ByXPATH, `.//option[@value = `+xpathLiteral(value)+`]`)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("%w: option with value %q", ErrNoSuchElement, value)
	}
	return s.selectAll(opts)
}

func (s *selectElement) selectByText(text string) error {
	opts, err := s.elem.FindElements(selenium.ByXPATH, `.//option[normalize-space(.) = `+xpathLiteral(normalizeSpace(text))+`]`)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		// Fall back to comparing the rendered text, which XPath does not see
		// for options whose label comes from the label attribute.
		all, err := s.options()
		if err != nil {
			return err
		}
		want := normalizeSpace(text)
		for _, o := range all {
			got, err := o.Text()
			if err != nil {
				return err
			}
			if normalizeSpace(got) == want {
				opts = append(opts, o)
			}
		}
	}
	if len(opts) == 0 {
		return fmt.Errorf("%w: option with text %q", ErrNoSuchElement, text)
	}
	return s.selectAll(opts)
}

func (s *selectElement) selectByIndex(idx int) error {
	opts, err := s.options()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(opts) {
		return fmt.Errorf("%w: option index %d out of range [0, %d)", ErrInvalidValue, idx, len(opts))
	}
	return setSelected(opts[idx], true)
}

// selectAll selects every matching option of a multi-select, or the first
// one otherwise.
func (s *selectElement) selectAll(opts []selenium.WebElement) error {
	if !s.multiple {
		opts = opts[:1]
	}
	for _, o := range opts {
		if err := setSelected(o, true); err != nil {
			return err
		}
	}
	return nil
}

func setSelected(option selenium.WebElement, selected bool) error {
	sel, err := option.IsSelected()
	if err != nil {
		return err
	}
	if sel == selected {
		return nil
	}
	return option.Click()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings containing both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
