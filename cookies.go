package stool

import (
	"sort"

	"github.com/tebeka/selenium"
)

// CookieOption changes what SetCookies removes before adding cookies.
type CookieOption func(*cookieConfig)

type cookieConfig struct {
	dropAll  bool
	dropKeys []string
}

// DropAll deletes every cookie of the current domain before the new ones
// are added.
func DropAll() CookieOption {
	return func(c *cookieConfig) {
		c.dropAll = true
	}
}

// DropKeys deletes the named cookies before the new ones are added.
func DropKeys(names ...string) CookieOption {
	return func(c *cookieConfig) {
		c.dropKeys = append(c.dropKeys, names...)
	}
}

// Cookies returns the cookies visible to the current page by name.
func (t *Tools) Cookies() (map[string]string, error) {
	cookies, err := t.wd.GetCookies()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m, nil
}

// SetCookies adds cookies to the current domain.
func (t *Tools) SetCookies(cookies map[string]string, opts ...CookieOption) error {
	var cfg cookieConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dropAll {
		if err := t.wd.DeleteAllCookies(); err != nil {
			return err
		}
	}
	for _, name := range cfg.dropKeys {
		if err := t.wd.DeleteCookie(name); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.wd.AddCookie(&selenium.Cookie{Name: name, Value: cookies[name], Path: "/"}); err != nil {
			return err
		}
	}
	debugLog("set %d cookies", len(names))
	return nil
}
