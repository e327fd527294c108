package securefile

import (
	"errors"
	"fmt"
)

// ErrorCode classifies settings-file construction failures.
type ErrorCode string

const (
	// ErrInsecureDirectory: the target directory is writable by someone other
	// than its owner, or not owned by the current user. Nothing was created.
	ErrInsecureDirectory ErrorCode = "insecure_directory"
	// ErrAllocation: no unique file could be created after bounded retries.
	ErrAllocation ErrorCode = "allocation_error"
	// ErrPermission: a permission transition or the content write failed.
	// The partially hardened file has been discarded.
	ErrPermission ErrorCode = "permission_error"
	// ErrImmutabilityUnsupported: the platform barrier could not be applied.
	// Only returned in strict mode.
	ErrImmutabilityUnsupported ErrorCode = "immutability_unsupported"
)

// Error is a construction failure with its classification and the path it
// concerns.
type Error struct {
	Code ErrorCode
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so callers can write
// errors.Is(err, &securefile.Error{Code: securefile.ErrInsecureDirectory}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(code ErrorCode, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}
