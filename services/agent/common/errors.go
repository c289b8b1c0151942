package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNilClock signals that a nil clock was provided
var ErrNilClock = errors.New("nil clock")

// ErrNilObserver signals that a nil observer was provided
var ErrNilObserver = errors.New("nil observer")

// ErrInvalidSampleRate signals that the sample rate is outside the [0, 1] interval
var ErrInvalidSampleRate = errors.New("invalid sample rate")

// ErrInvalidMaxLogEntries signals that the log cap is not positive
var ErrInvalidMaxLogEntries = errors.New("invalid max log entries")

// ErrorInfo describes a captured failure: its kind name, its message and an optional stack trace
type ErrorInfo struct {
	Name    string
	Message string
	Stack   string
}

// NewErrorInfo converts a Go error into an ErrorInfo. The name is the dynamic type of the innermost error.
func NewErrorInfo(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Name: "Error", Message: "unknown error"}
	}

	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}

	return ErrorInfo{
		Name:    strings.TrimPrefix(fmt.Sprintf("%T", inner), "*"),
		Message: err.Error(),
	}
}
