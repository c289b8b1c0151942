package common

// OpResult makes the outcome of an operation on an identifier explicit. Callers may ignore it.
type OpResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Ok returns a successful result
func Ok() OpResult {
	return OpResult{OK: true}
}

// Fail returns a failed result with the provided reason
func Fail(reason string) OpResult {
	return OpResult{OK: false, Reason: reason}
}

const (
	// ReasonUnknownError is returned when an error record id is not known
	ReasonUnknownError = "unknown error id"
	// ReasonUnknownTrace is returned when a trace id is not active
	ReasonUnknownTrace = "unknown trace id"
	// ReasonUnknownRule is returned when a rule id is not known
	ReasonUnknownRule = "unknown rule id"
	// ReasonDisabled is returned when the aggregator is disabled
	ReasonDisabled = "monitoring disabled"
	// ReasonRuleDisabled is returned when a threshold fires for a disabled rule
	ReasonRuleDisabled = "rule disabled"
	// ReasonCooldown is returned when a rule fired again within its cooldown
	ReasonCooldown = "rule in cooldown"
)
