package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// ErrorSinkStub -
type ErrorSinkStub struct {
	TrackHandler func(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) common.ErrorRecord
}

// Track -
func (stub *ErrorSinkStub) Track(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) common.ErrorRecord {
	if stub.TrackHandler != nil {
		return stub.TrackHandler(info, ctx, errType, severity)
	}

	return common.ErrorRecord{}
}

// IsInterfaceNil -
func (stub *ErrorSinkStub) IsInterfaceNil() bool {
	return stub == nil
}
