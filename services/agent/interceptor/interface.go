package interceptor

import (
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// ErrorRecorder records captured errors
type ErrorRecorder interface {
	TrackError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
	IsInterfaceNil() bool
}

// APIRecorder records captured errors and API call outcomes
type APIRecorder interface {
	ErrorRecorder
	TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration)
}
