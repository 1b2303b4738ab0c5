package stool

import (
	"errors"
	"strings"

	"github.com/wanmail/stool/parser"
)

// Errors returned by stool. They are wrapped with details about the failing
// call; use errors.Is to test for them.
var (
	ErrInvalidSelector  = errors.New("invalid selector")
	ErrInvalidElement   = errors.New("invalid element")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidContent   = errors.New("invalid content")
	ErrInvalidBrowser   = errors.New("invalid browser")
	ErrInvalidWebDriver = errors.New("selenium WebDriver validation failed")
	ErrNotImplemented   = parser.ErrNotImplemented
	ErrNoSuchElement    = errors.New("no such element")
	ErrTimeout          = errors.New("timeout")
)

// Messages the remote end uses to report missing elements. Legacy servers
// only send the numeric status 7, which the client renders as the first one.
var noSuchElementMessages = []string{
	"no such element",
	"unable to locate element",
}

func isNoSuchElement(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoSuchElement) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range noSuchElementMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
