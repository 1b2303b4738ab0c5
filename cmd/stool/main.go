// Binary stool drives a browser from the command line: it visits pages,
// takes screenshots, parses elements, edits cookies, installs drivers and
// serves screenshots over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
)

func main() {
	defer glog.Flush()
	// glog registers its flags on the standard flag set; cobra parses them.
	flag.CommandLine.Parse(nil)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stool:", err)
		glog.Flush()
		os.Exit(1)
	}
}
