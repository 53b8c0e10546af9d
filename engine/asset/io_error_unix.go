//go:build unix

package asset

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isWriteProtected(err error) bool {
	return errors.Is(err, unix.EROFS)
}
