package collector

import "errors"

// ErrNilSampler signals that a nil sampler was provided
var ErrNilSampler = errors.New("nil sampler")

// ErrNilErrorSink signals that a nil error sink was provided
var ErrNilErrorSink = errors.New("nil error sink")

// ErrNilThresholdHandler signals that a nil threshold handler was provided
var ErrNilThresholdHandler = errors.New("nil threshold handler")
