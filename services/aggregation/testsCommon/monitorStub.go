package testsCommon

import (
	"time"

	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// MonitorStub -
type MonitorStub struct {
	TrackErrorHandler          func(info agentCommon.ErrorInfo, ctx agentCommon.ErrorContext, errType agentCommon.ErrorType, severity agentCommon.Severity) (agentCommon.ErrorRecord, bool)
	TrackAPIPerformanceHandler func(endpoint string, method string, statusCode int, duration time.Duration)
	HealthReportHandler        func() agentCommon.HealthReport
}

// TrackError -
func (stub *MonitorStub) TrackError(info agentCommon.ErrorInfo, ctx agentCommon.ErrorContext, errType agentCommon.ErrorType, severity agentCommon.Severity) (agentCommon.ErrorRecord, bool) {
	if stub.TrackErrorHandler != nil {
		return stub.TrackErrorHandler(info, ctx, errType, severity)
	}

	return agentCommon.ErrorRecord{}, true
}

// TrackAPIPerformance -
func (stub *MonitorStub) TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration) {
	if stub.TrackAPIPerformanceHandler != nil {
		stub.TrackAPIPerformanceHandler(endpoint, method, statusCode, duration)
	}
}

// HealthReport -
func (stub *MonitorStub) HealthReport() agentCommon.HealthReport {
	if stub.HealthReportHandler != nil {
		return stub.HealthReportHandler()
	}

	return agentCommon.HealthReport{Status: agentCommon.HealthUnknown}
}

// IsInterfaceNil -
func (stub *MonitorStub) IsInterfaceNil() bool {
	return stub == nil
}
