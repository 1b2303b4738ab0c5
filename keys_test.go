package stool

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium"
)

func TestPressKeys(t *testing.T) {
	wd := newDriver()
	tools := newTools(wd)

	if err := tools.PressKeys([]string{"control", "Shift", "t"}); err != nil {
		t.Fatalf("PressKeys() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{selenium.ControlKey, selenium.ShiftKey, "t"}, wd.keysDown); diff != "" {
		t.Errorf("keys pressed diff (-want/+got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t", selenium.ShiftKey, selenium.ControlKey}, wd.keysUp); diff != "" {
		t.Errorf("keys released diff (-want/+got):\n%s", diff)
	}
}

func TestPressKeysInvalid(t *testing.T) {
	for _, keys := range [][]string{
		nil,
		{"CONTROL", "HYPER"},
		{"ab"},
		{"é"},
	} {
		wd := newDriver()
		tools := newTools(wd)
		if err := tools.PressKeys(keys); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("PressKeys(%q) returned error %v, want ErrInvalidKey", keys, err)
		}
		if len(wd.keysDown) != 0 {
			t.Errorf("PressKeys(%q) pressed %q before failing", keys, wd.keysDown)
		}
	}
}

func TestKeyNames(t *testing.T) {
	names := KeyNames()
	for _, want := range []string{"CONTROL", "ENTER", "F12", "TAB"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("KeyNames() is missing %q", want)
		}
	}
}
