//go:build windows

package asset

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/windows"
)

func TestAsIOErrorWriteProtected(t *testing.T) {
	err := AsIOError(&fs.PathError{Op: "open", Path: "tweakables.toml", Err: windows.ERROR_WRITE_PROTECT}, "")
	assert.Equal(t, ReasonWriteProtected, err.Reason)

	other := AsIOError(&fs.PathError{Op: "open", Path: "tweakables.toml", Err: windows.ERROR_NOT_READY}, "")
	assert.Equal(t, ReasonOther, other.Reason)
}
