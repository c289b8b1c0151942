package interceptor

import "errors"

// ErrNilRecorder signals that a nil recorder was provided
var ErrNilRecorder = errors.New("nil recorder")

// ErrNilWriter signals that a nil output writer was provided
var ErrNilWriter = errors.New("nil writer")

// ErrEmptyComponent signals that an empty component name was provided
var ErrEmptyComponent = errors.New("empty component")
