package stool

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Schemes that are navigable without a host.
var hostlessSchemes = map[string]bool{
	"about": true,
	"data":  true,
	"file":  true,
}

// resolveContent turns the argument of Tools.Get into a URL the browser can
// load: local files become file:// URLs, URLs are kept and anything else is
// treated as HTML markup and wrapped in a data: URL.
func resolveContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: URL or HTML content must be a non-empty string", ErrInvalidContent)
	}

	if fi, err := os.Stat(content); err == nil && !fi.IsDir() {
		abs, err := filepath.Abs(content)
		if err != nil {
			return "", err
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}

	if u, err := url.Parse(content); err == nil && u.Scheme != "" {
		if u.Host != "" || hostlessSchemes[strings.ToLower(u.Scheme)] {
			return content, nil
		}
	}

	return "data:text/html;charset=utf-8," + url.PathEscape(content), nil
}
