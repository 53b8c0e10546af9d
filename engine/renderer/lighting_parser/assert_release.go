//go:build release

package lighting_parser

import (
	"github.com/Carmen-Shannon/oxy-resolve/common"
)

func defaultAssertionHook(msg string) {
	common.Logger().Error("lighting parser contract violation", "detail", msg)
}
