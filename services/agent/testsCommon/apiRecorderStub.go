package testsCommon

import (
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// APIRecorderStub -
type APIRecorderStub struct {
	TrackErrorHandler          func(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
	TrackAPIPerformanceHandler func(endpoint string, method string, statusCode int, duration time.Duration)
}

// TrackError -
func (stub *APIRecorderStub) TrackError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
	if stub.TrackErrorHandler != nil {
		return stub.TrackErrorHandler(info, ctx, errType, severity)
	}

	return common.ErrorRecord{}, true
}

// TrackAPIPerformance -
func (stub *APIRecorderStub) TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration) {
	if stub.TrackAPIPerformanceHandler != nil {
		stub.TrackAPIPerformanceHandler(endpoint, method, statusCode, duration)
	}
}

// IsInterfaceNil -
func (stub *APIRecorderStub) IsInterfaceNil() bool {
	return stub == nil
}
