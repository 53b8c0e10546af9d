//go:build unix

package asset

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestAsIOErrorWriteProtected(t *testing.T) {
	err := AsIOError(&fs.PathError{Op: "open", Path: "tweakables.toml", Err: unix.EROFS}, "")
	assert.Equal(t, ReasonWriteProtected, err.Reason)

	other := AsIOError(&fs.PathError{Op: "open", Path: "tweakables.toml", Err: unix.ENODEV}, "")
	assert.Equal(t, ReasonOther, other.Reason)
}
