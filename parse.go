package stool

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/wanmail/stool/parser"
)

// OuterHTML returns the HTML source of the element matching loc.
func (t *Tools) OuterHTML(loc Locator) (string, error) {
	elem, err := t.Element(loc)
	if err != nil {
		return "", err
	}
	v, err := t.wd.ExecuteScript("return arguments[0].outerHTML;", []interface{}{elem})
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("outerHTML of %s is %T, want a string", loc, v)
	}
	return s, nil
}

// Parse runs the parser registered under tag on the element matching loc.
// Tags without a parser fail with ErrNotImplemented before the page is
// queried.
func (t *Tools) Parse(tag string, loc Locator) (interface{}, error) {
	if _, ok := t.parsers.Lookup(tag); !ok {
		return nil, fmt.Errorf("%s parser: %w", tag, ErrNotImplemented)
	}
	src, err := t.OuterHTML(loc)
	if err != nil {
		return nil, err
	}
	return t.parsers.Parse(tag, src)
}

// Parsers returns the tags Parse accepts.
func (t *Tools) Parsers() []string {
	return t.parsers.Tags()
}

// Dropdown returns the options of the dropdown matching loc, skipping
// options whose text is in exclude.
func (t *Tools) Dropdown(loc Locator, exclude ...string) ([]parser.Option, error) {
	root, err := t.parseElement(loc)
	if err != nil {
		return nil, err
	}
	return parser.Dropdown(root, exclude...)
}

// Table returns the contents of the table matching loc.
func (t *Tools) Table(loc Locator) (*parser.Table, error) {
	root, err := t.parseElement(loc)
	if err != nil {
		return nil, err
	}
	return parser.ParseTable(root)
}

func (t *Tools) parseElement(loc Locator) (*html.Node, error) {
	src, err := t.OuterHTML(loc)
	if err != nil {
		return nil, err
	}
	return htmlquery.Parse(strings.NewReader(src))
}
