package stool

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

var debugFlag = false

// SetDebug enables verbose logging of stool operations and of the WebDriver
// wire traffic.
func SetDebug(debug bool) {
	debugFlag = debug
	selenium.SetDebug(debug)
}

func debugLog(format string, args ...interface{}) {
	if !debugFlag && !bool(glog.V(1)) {
		return
	}
	glog.InfoDepth(1, fmt.Sprintf(format, args...))
}
