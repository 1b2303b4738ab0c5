// Package parser extracts structured data from HTML fragments, such as the
// outerHTML of an element fetched from the browser.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrNotImplemented is returned for tags that have no registered parser.
var ErrNotImplemented = errors.New("not implemented")

// Func parses the document rooted at root.
type Func func(root *html.Node) (interface{}, error)

// Names of the built-in parsers.
const (
	DropdownTag = "dropdown"
	TableTag    = "table"
	LinksTag    = "links"
)

// Registry holds parsers by tag name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Func
}

// NewRegistry returns a registry holding the built-in parsers.
func NewRegistry() *Registry {
	return &Registry{
		parsers: map[string]Func{
			DropdownTag: func(root *html.Node) (interface{}, error) { return Dropdown(root) },
			TableTag:    func(root *html.Node) (interface{}, error) { return ParseTable(root) },
			LinksTag:    func(root *html.Node) (interface{}, error) { return Links(root) },
		},
	}
}

// Register adds fn under tag, replacing any parser of the same name.
func (r *Registry) Register(tag string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[tag] = fn
}

// Lookup returns the parser registered under tag.
func (r *Registry) Lookup(tag string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.parsers[tag]
	return fn, ok
}

// Tags returns the registered tag names in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Parse parses src and runs the parser registered under tag.
func (r *Registry) Parse(tag, src string) (interface{}, error) {
	fn, ok := r.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%s parser: %w", tag, ErrNotImplemented)
	}
	root, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return fn(root)
}

// Option is an option of a dropdown.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Dropdown returns the options below root, in document order. Options with
// empty text or text listed in exclude are skipped.
func Dropdown(root *html.Node, exclude ...string) ([]Option, error) {
	nodes, err := htmlquery.QueryAll(root, "//option")
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	var opts []Option
	for _, n := range nodes {
		text := strings.TrimSpace(htmlquery.InnerText(n))
		if text == "" || skip[text] {
			continue
		}
		opts = append(opts, Option{
			Text:  text,
			Value: strings.TrimSpace(htmlquery.SelectAttr(n, "value")),
		})
	}
	return opts, nil
}

// A Table is the text content of an HTML table.
type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// ParseTable returns the first table below root. Header cells come from the
// first row when it consists only of <th> cells.
func ParseTable(root *html.Node) (*Table, error) {
	table, err := htmlquery.Query(root, "//table")
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("no table element found")
	}
	rows, err := htmlquery.QueryAll(table, "./tr | ./thead/tr | ./tbody/tr | ./tfoot/tr")
	if err != nil {
		return nil, err
	}
	t := &Table{Rows: [][]string{}}
	for i, row := range rows {
		cells := htmlquery.Find(row, "./th | ./td")
		allHeaders := len(cells) > 0
		texts := make([]string, len(cells))
		for j, c := range cells {
			if c.Data != "th" {
				allHeaders = false
			}
			texts[j] = strings.Join(strings.Fields(htmlquery.InnerText(c)), " ")
		}
		if i == 0 && allHeaders {
			t.Headers = texts
			continue
		}
		t.Rows = append(t.Rows, texts)
	}
	return t, nil
}

// Links returns the href values of the anchors below root, in document
// order.
func Links(root *html.Node) ([]string, error) {
	nodes, err := htmlquery.QueryAll(root, "//a[@href]")
	if err != nil {
		return nil, err
	}
	links := make([]string, 0, len(nodes))
	for _, n := range nodes {
		links = append(links, htmlquery.SelectAttr(n, "href"))
	}
	return links, nil
}
