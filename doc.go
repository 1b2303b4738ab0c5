/*
Package stool provides helpers on top of a Selenium/WebDriver client.

The WebDriver protocol itself is handled by github.com/tebeka/selenium. This
package starts the driver processes, validates locators, fills forms, manages
cookies and extracts structured data (dropdown options, tables) from the
rendered page.

Example usage:

	package main

	import (
		"fmt"

		"github.com/wanmail/stool"
	)

	// Errors are ignored for brevity.

	func main() {
		t, _ := stool.Launch("firefox", []stool.DriverOption{stool.Headless()}, nil)
		defer t.Close()

		t.Get("https://example.com")

		loc, _ := stool.NewLocator("//h1", "xpath")
		elem, _ := t.WaitForElement(loc, 0)
		text, _ := elem.Text()

		cookies, _ := t.Cookies()
		fmt.Printf("%s %s %v\n", t.SessionID(), text, cookies)
	}
*/
package stool
