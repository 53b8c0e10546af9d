package lighting_parser

import (
	"fmt"
	"sync/atomic"
)

// AssertionHook receives contract violations such as appending a resolve callback outside the prepare pass.
type AssertionHook func(msg string)

var assertionHook atomic.Pointer[AssertionHook]

func init() {
	h := AssertionHook(defaultAssertionHook)
	assertionHook.Store(&h)
}

// SetAssertionHook replaces the hook called on contract violations. Passing nil restores the default, which panics
// unless the binary was built with the release tag.
//
// Parameters:
//   - h: the new hook
//
// Returns:
//   - AssertionHook: the previous hook
func SetAssertionHook(h AssertionHook) AssertionHook {
	if h == nil {
		h = defaultAssertionHook
	}
	previous := assertionHook.Swap(&h)
	return *previous
}

func contractViolation(format string, args ...any) {
	(*assertionHook.Load())(fmt.Sprintf(format, args...))
}
