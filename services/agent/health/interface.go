package health

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
)

// MetricRecorder is the collector side used to record and read back the area samples
type MetricRecorder interface {
	RecordSystemMetric(sample common.MetricSample, area string)
	MetricsSince(category string, since int64) []common.MetricSample
	RecordError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
	IsInterfaceNil() bool
}

// ErrorLister returns the grouped error records
type ErrorLister interface {
	Errors(filter common.ErrorFilter) []common.ErrorRecord
	IsInterfaceNil() bool
}

// Prober checks the external services
type Prober interface {
	ProbeAll(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult
	IsInterfaceNil() bool
}
