// Package errdefs defines the error kinds shared by the parsers, the
// execution engine and the CLI. Callers classify errors with the Is*
// helpers instead of matching message text.
package errdefs

import (
	"errors"
	"fmt"
)

// FormatError signals malformed external input: a bad ATF list header, an
// invalid TAP stream or a corrupt result file. The runner converts these
// into broken test results; they are never fatal.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return e.Msg
}

// Format builds a FormatError from a printf-style message.
func Format(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// IsFormat reports whether err is (or wraps) a FormatError.
func IsFormat(err error) bool {
	var e *FormatError
	return errors.As(err, &e)
}

// LoadError signals that a test program's case list could not be retrieved:
// the binary is missing, refused to execute or exited badly. The test
// command skips the program and records a single broken pseudo case for it.
type LoadError struct {
	Msg string
	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load builds a LoadError with an optional cause.
func Load(err error, format string, args ...interface{}) error {
	return &LoadError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsLoad reports whether err is (or wraps) a LoadError.
func IsLoad(err error) bool {
	var e *LoadError
	return errors.As(err, &e)
}

// UsageError signals invalid configuration or command line input. It is
// surfaced to the user and never triggers test execution.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// Usage builds a UsageError from a printf-style message.
func Usage(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// IsUsage reports whether err is (or wraps) a UsageError.
func IsUsage(err error) bool {
	var e *UsageError
	return errors.As(err, &e)
}

// SystemError signals an OS-level failure: fork, exec, capture file I/O or
// signal installation. Fatal to the current run.
type SystemError struct {
	Msg string
	Err error
}

func (e *SystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// System builds a SystemError with an optional cause.
func System(err error, format string, args ...interface{}) error {
	return &SystemError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsSystem reports whether err is (or wraps) a SystemError.
func IsSystem(err error) bool {
	var e *SystemError
	return errors.As(err, &e)
}
