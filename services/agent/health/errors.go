package health

import (
	"errors"
	"net/http"
)

// ErrNilMetricRecorder signals that a nil metric recorder was provided
var ErrNilMetricRecorder = errors.New("nil metric recorder")

// ErrNilErrorLister signals that a nil error lister was provided
var ErrNilErrorLister = errors.New("nil error lister")

// ErrNilProber signals that a nil prober was provided
var ErrNilProber = errors.New("nil prober")

type errStatusNotOK int

func (e errStatusNotOK) Error() string {
	return "non-2xx HTTP status code: " + http.StatusText(int(e))
}

type errPathNotFound string

func (e errPathNotFound) Error() string {
	return "JSON path not found in response: " + string(e)
}
