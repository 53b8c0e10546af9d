//go:build !release

package lighting_parser

func defaultAssertionHook(msg string) {
	panic("lighting_parser: " + msg)
}
