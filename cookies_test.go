package stool

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"
)

func TestCookies(t *testing.T) {
	wd := newDriver()
	tools := newTools(wd)

	got, err := tools.Cookies()
	if err != nil {
		t.Fatalf("Cookies() returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Cookies() without cookies = %#v, want an empty map", got)
	}

	wd.cookies = []selenium.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
	got, err = tools.Cookies()
	if err != nil {
		t.Fatalf("Cookies() returned error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"a": "1", "b": "2"}, got); diff != "" {
		t.Errorf("Cookies() returned diff (-want/+got):\n%s", diff)
	}
}

func TestSetCookies(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []CookieOption
		want []string
	}{
		{"keep", nil, []string{"old", "other", "a", "b"}},
		{"drop all", []CookieOption{DropAll()}, []string{"a", "b"}},
		{"drop keys", []CookieOption{DropKeys("old")}, []string{"other", "a", "b"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			wd := newDriver()
			wd.cookies = []selenium.Cookie{{Name: "old", Value: "x"}, {Name: "other", Value: "y"}}
			tools := newTools(wd)

			if err := tools.SetCookies(map[string]string{"b": "2", "a": "1"}, tc.opts...); err != nil {
				t.Fatalf("SetCookies() returned error: %v", err)
			}
			var names []string
			for _, c := range wd.cookies {
				names = append(names, c.Name)
			}
			if diff := cmp.Diff(tc.want, names); diff != "" {
				t.Errorf("cookies diff (-want/+got):\n%s", diff)
			}
		})
	}
}
