package sandbox

import (
	"errors"
	"fmt"
)

// ErrorCode classifies sandbox failures.
type ErrorCode string

const (
	// ErrSandboxUnavailable: no launcher could be found. Fatal in strict
	// mode, otherwise commands run unsandboxed with a warning.
	ErrSandboxUnavailable ErrorCode = "sandbox_unavailable"
	ErrCommandNotFound    ErrorCode = "command_not_found"
	ErrExecFailed         ErrorCode = "exec_failed"
	ErrTimeout            ErrorCode = "timeout"
)

// Error represents a structured sandbox failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
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
