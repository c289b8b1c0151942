package dispatch

import "errors"

// ErrUnknownChannel signals that an alert names a channel that is not registered
var ErrUnknownChannel = errors.New("unknown channel")

// ErrCircuitOpen signals that the channel circuit breaker rejected the attempt
var ErrCircuitOpen = errors.New("circuit breaker open")

// ErrNilChannel signals that a nil channel was provided
var ErrNilChannel = errors.New("nil channel")

// ErrDuplicatedChannel signals that two channels share the same name
var ErrDuplicatedChannel = errors.New("duplicated channel")
