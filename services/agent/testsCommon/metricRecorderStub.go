package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// MetricRecorderStub -
type MetricRecorderStub struct {
	RecordSystemMetricHandler func(sample common.MetricSample, area string)
	MetricsSinceHandler       func(category string, since int64) []common.MetricSample
	RecordErrorHandler        func(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
}

// RecordSystemMetric -
func (stub *MetricRecorderStub) RecordSystemMetric(sample common.MetricSample, area string) {
	if stub.RecordSystemMetricHandler != nil {
		stub.RecordSystemMetricHandler(sample, area)
	}
}

// MetricsSince -
func (stub *MetricRecorderStub) MetricsSince(category string, since int64) []common.MetricSample {
	if stub.MetricsSinceHandler != nil {
		return stub.MetricsSinceHandler(category, since)
	}

	return make([]common.MetricSample, 0)
}

// RecordError -
func (stub *MetricRecorderStub) RecordError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
	if stub.RecordErrorHandler != nil {
		return stub.RecordErrorHandler(info, ctx, errType, severity)
	}

	return common.ErrorRecord{}, true
}

// IsInterfaceNil -
func (stub *MetricRecorderStub) IsInterfaceNil() bool {
	return stub == nil
}
