package stool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tebeka/selenium"
)

// keyCodes maps key names accepted by PressKeys to WebDriver key codes.
var keyCodes = map[string]string{
	"NULL":        selenium.NullKey,
	"CANCEL":      selenium.CancelKey,
	"HELP":        selenium.HelpKey,
	"BACKSPACE":   selenium.BackspaceKey,
	"BACK_SPACE":  selenium.BackspaceKey,
	"TAB":         selenium.TabKey,
	"CLEAR":       selenium.ClearKey,
	"RETURN":      selenium.ReturnKey,
	"ENTER":       selenium.EnterKey,
	"SHIFT":       selenium.ShiftKey,
	"CONTROL":     selenium.ControlKey,
	"CTRL":        selenium.ControlKey,
	"ALT":         selenium.AltKey,
	"PAUSE":       selenium.PauseKey,
	"ESCAPE":      selenium.EscapeKey,
	"ESC":         selenium.EscapeKey,
	"SPACE":       selenium.SpaceKey,
	"PAGE_UP":     selenium.PageUpKey,
	"PAGE_DOWN":   selenium.PageDownKey,
	"END":         selenium.EndKey,
	"HOME":        selenium.HomeKey,
	"LEFT":        selenium.LeftArrowKey,
	"ARROW_LEFT":  selenium.LeftArrowKey,
	"UP":          selenium.UpArrowKey,
	"ARROW_UP":    selenium.UpArrowKey,
	"RIGHT":       selenium.RightArrowKey,
	"ARROW_RIGHT": selenium.RightArrowKey,
	"DOWN":        selenium.DownArrowKey,
	"ARROW_DOWN":  selenium.DownArrowKey,
	"INSERT":      selenium.InsertKey,
	"DELETE":      selenium.DeleteKey,
	"SEMICOLON":   selenium.SemicolonKey,
	"EQUALS":      selenium.EqualsKey,
	"NUMPAD0":     selenium.Numpad0Key,
	"NUMPAD1":     selenium.Numpad1Key,
	"NUMPAD2":     selenium.Numpad2Key,
	"NUMPAD3":     selenium.Numpad3Key,
	"NUMPAD4":     selenium.Numpad4Key,
	"NUMPAD5":     selenium.Numpad5Key,
	"NUMPAD6":     selenium.Numpad6Key,
	"NUMPAD7":     selenium.Numpad7Key,
	"NUMPAD8":     selenium.Numpad8Key,
	"NUMPAD9":     selenium.Numpad9Key,
	"MULTIPLY":    selenium.MultiplyKey,
	"ADD":         selenium.AddKey,
	"SEPARATOR":   selenium.SeparatorKey,
	"SUBTRACT":    selenium.SubstractKey,
	"DECIMAL":     selenium.DecimalKey,
	"DIVIDE":      selenium.DivideKey,
	"F1":          selenium.F1Key,
	"F2":          selenium.F2Key,
	"F3":          selenium.F3Key,
	"F4":          selenium.F4Key,
	"F5":          selenium.F5Key,
	"F6":          selenium.F6Key,
	"F7":          selenium.F7Key,
	"F8":          selenium.F8Key,
	"F9":          selenium.F9Key,
	"F10":         selenium.F10Key,
	"F11":         selenium.F11Key,
	"F12":         selenium.F12Key,
	"META":        selenium.MetaKey,
	"COMMAND":     selenium.MetaKey,
}

// KeyNames returns the names of the special keys PressKeys accepts, sorted.
// Single letters and digits are accepted as well.
func KeyNames() []string {
	names := make([]string, 0, len(keyCodes))
	for k := range keyCodes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// keyCode returns the key sequence for a key name.
func keyCode(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if code, ok := keyCodes[n]; ok {
		return code, nil
	}
	if len(n) == 1 && (n[0] >= 'A' && n[0] <= 'Z' || n[0] >= '0' && n[0] <= '9') {
		// Letters are sent lower case; SHIFT in the chord upper-cases them.
		return strings.ToLower(n), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
}

// PressKeys presses a chord of keys on the active element, such as
// []string{"CONTROL", "A"}. Keys are pressed in order and released in
// reverse order.
func (t *Tools) PressKeys(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: no keys given", ErrInvalidKey)
	}
	codes := make([]string, len(names))
	for i, name := range names {
		code, err := keyCode(name)
		if err != nil {
			return err
		}
		codes[i] = code
	}
	for _, c := range codes {
		if err := t.wd.KeyDown(c); err != nil {
			return err
		}
	}
	for i := len(codes) - 1; i >= 0; i-- {
		if err := t.wd.KeyUp(codes[i]); err != nil {
			return err
		}
	}
	debugLog("pressed keys %v", names)
	return nil
}
