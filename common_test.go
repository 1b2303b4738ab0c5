package stool

import "testing"

func TestSetDebug(t *testing.T) {
	defer SetDebug(false)

	SetDebug(true)
	if !debugFlag {
		t.Error("SetDebug(true) left debug logging off")
	}
	// Must not panic with debug logging on.
	debugLog("debug %s", "message")

	SetDebug(false)
	if debugFlag {
		t.Error("SetDebug(false) left debug logging on")
	}
}
