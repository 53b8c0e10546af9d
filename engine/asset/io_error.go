// Package asset holds the file and dependency layer consumed by the renderer: typed I/O failures, dependency validation
// markers that signal when a built resource is stale, file stores backed by the OS or an fs.FS, and the generic build cache
// used by the shader library and the lighting resolve resources.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
)

// Reason classifies the cause of an IOError.
type Reason int

const (
	ReasonNotFound Reason = iota
	ReasonAccessDenied
	ReasonWriteProtected
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "not-found"
	case ReasonAccessDenied:
		return "access-denied"
	case ReasonWriteProtected:
		return "write-protected"
	default:
		return "other"
	}
}

// IOError is the typed failure surfaced by the file layer. Message holds the OS-provided description.
type IOError struct {
	Reason  Reason
	Path    string
	Message string
	Err     error
}

// NewIOError creates an IOError without an underlying cause.
//
// Parameters:
//   - reason: the failure classification
//   - path: the file the operation targeted
//   - msg: a human readable description
//
// Returns:
//   - *IOError: the new error
func NewIOError(reason Reason, path, msg string) *IOError {
	return &IOError{Reason: reason, Path: path, Message: msg}
}

// AsIOError converts err into an IOError, classifying the reason from the OS error. An existing IOError in the chain is
// returned unchanged. Returns nil for a nil error.
//
// Parameters:
//   - err: the error to convert
//   - path: the file the operation targeted
//
// Returns:
//   - *IOError: the classified error
func AsIOError(err error, path string) *IOError {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ioErr
	}

	msg := err.Error()
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		msg = pathErr.Err.Error()
		if path == "" {
			path = pathErr.Path
		}
	}

	reason := ReasonOther
	switch {
	case errors.Is(err, fs.ErrNotExist):
		reason = ReasonNotFound
	case isWriteProtected(err):
		reason = ReasonWriteProtected
	case errors.Is(err, fs.ErrPermission):
		reason = ReasonAccessDenied
	}
	return &IOError{Reason: reason, Path: path, Message: msg, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Reason)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
