package stool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tebeka/selenium"
)

// Locator types, as accepted by NewLocator.
const (
	LocatorID              = "id"
	LocatorXPath           = "xpath"
	LocatorLinkText        = "link_text"
	LocatorPartialLinkText = "partial_link_text"
	LocatorName            = "name"
	LocatorTagName         = "tag_name"
	LocatorClassName       = "class_name"
	LocatorCSSSelector     = "css_selector"
)

// locatorMethods maps locator types to the WebDriver find methods.
var locatorMethods = map[string]string{
	LocatorID:              selenium.ByID,
	LocatorXPath:           selenium.ByXPATH,
	LocatorLinkText:        selenium.ByLinkText,
	LocatorPartialLinkText: selenium.ByPartialLinkText,
	LocatorName:            selenium.ByName,
	LocatorTagName:         selenium.ByTagName,
	LocatorClassName:       selenium.ByClassName,
	LocatorCSSSelector:     selenium.ByCSSSelector,
}

// LocatorTypes returns the valid locator types in sorted order.
func LocatorTypes() []string {
	types := make([]string, 0, len(locatorMethods))
	for t := range locatorMethods {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Locator identifies elements on a page. Type is one of the Locator*
// constants and By the matching WebDriver find method.
type Locator struct {
	Type  string
	By    string
	Value string
}

// NewLocator validates the locator type and returns a Locator for value. The
// type is case-insensitive and may be written with underscores, dashes or
// spaces ("css_selector", "CSS-SELECTOR", "css selector"). An empty type
// means LocatorID.
func NewLocator(value, typ string) (Locator, error) {
	t := normalizeLocatorType(typ)
	by, ok := locatorMethods[t]
	if !ok {
		return Locator{}, fmt.Errorf("%w: locator type %q must be one of: %s", ErrInvalidSelector, typ, strings.Join(LocatorTypes(), ", "))
	}
	return Locator{Type: t, By: by, Value: value}, nil
}

// ParseLocator parses the "type=value" form produced by Locator.String. A
// string without "=" is an id.
func ParseLocator(s string) (Locator, error) {
	i := strings.Index(s, "=")
	if i < 0 {
		return NewLocator(s, LocatorID)
	}
	return NewLocator(s[i+1:], s[:i])
}

func normalizeLocatorType(typ string) string {
	t := strings.ToLower(strings.TrimSpace(typ))
	if t == "" {
		return LocatorID
	}
	return strings.NewReplacer("-", "_", " ", "_").Replace(t)
}

func (l Locator) String() string {
	return l.Type + "=" + l.Value
}
