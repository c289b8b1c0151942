package api

import "errors"

// ErrNilStorage signals that a nil storage was provided
var ErrNilStorage = errors.New("storage is required")

// ErrNilHTTPHandler signals that a nil general http handler was provided
var ErrNilHTTPHandler = errors.New("nil http handler")

// ErrNilMonitor signals that a nil monitor was provided
var ErrNilMonitor = errors.New("nil monitor")

var errMissingToken = errors.New("missing token")
var errInvalidToken = errors.New("invalid token")
var errInvalidTokenSign = errors.New("invalid token sign")
var errUnauthorized = errors.New("unauthorized")
var errTokenExpired = errors.New("token expired")
