//go:build !unix && !windows

package asset

func isWriteProtected(error) bool {
	return false
}
