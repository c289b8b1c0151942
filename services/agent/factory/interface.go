package factory

import (
	"context"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// Engine defines the monitoring operations exposed by the components handler
type Engine interface {
	RecordMetric(sample common.MetricSample)
	RecordError(err error, ctx common.ErrorContext) (common.ErrorRecord, bool)
	TrackError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
	TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration)
	Errors(filter common.ErrorFilter) []common.ErrorRecord
	Alerts() []common.AlertEvent
	Rules() []common.ErrorRule
	HealthReport() common.HealthReport
	CollectMetrics(ctx context.Context)
	EvaluateHealth(ctx context.Context)
	DispatchAlerts(ctx context.Context)
	Cleanup(ctx context.Context)
	Report(ctx context.Context)
	IsReporting() bool
	IsInterfaceNil() bool
}
