package rules

import "errors"

// ErrNilAlertSink signals that a nil alert sink was provided
var ErrNilAlertSink = errors.New("nil alert sink")

// ErrUnknownConditionKind signals that a rule uses an unsupported predicate
var ErrUnknownConditionKind = errors.New("unknown condition kind")

// ErrInvalidRule signals that a rule definition is incomplete
var ErrInvalidRule = errors.New("invalid rule")
