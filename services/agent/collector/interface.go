package collector

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// Sampler decides whether a sampled record is kept
type Sampler interface {
	ShouldSample() bool
	IsInterfaceNil() bool
}

// ErrorSink groups the recorded errors
type ErrorSink interface {
	Track(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) common.ErrorRecord
	IsInterfaceNil() bool
}

// ThresholdHandler is called when a static threshold is exceeded
type ThresholdHandler interface {
	EvaluateThreshold(ruleID string, metricName string, message string) common.OpResult
	IsInterfaceNil() bool
}

// SampleObserver is notified about every kept metric sample
type SampleObserver interface {
	OnSample(sample common.MetricSample)
	IsInterfaceNil() bool
}
