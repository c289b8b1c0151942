package engine

import (
	"context"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
)

// Reporter defines the interface for pushing batches to the ingestion service
type Reporter interface {
	// Report sends the batch to the ingestion service.
	// Reporting failures log an error and omit immediate retry.
	Report(ctx context.Context, batch common.Batch) error

	IsInterfaceNil() bool
}

// Prober checks the configured external services
type Prober interface {
	ProbeAll(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult
	IsInterfaceNil() bool
}

// Sampler decides whether a sampled record is kept
type Sampler interface {
	ShouldSample() bool
	IsInterfaceNil() bool
}

// Collector is the local recording side of the engine
type Collector interface {
	RecordMetric(sample common.MetricSample)
	RecordSystemMetric(sample common.MetricSample, area string)
	RecordError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool)
	RecordInteraction(event common.InteractionEvent)
	RecordBusinessMetric(metric common.BusinessMetric)
	StartTrace(operation string) common.TraceSpan
	EndTrace(traceID string, tags map[string]string) common.OpResult
	CancelTrace(traceID string) common.OpResult
	TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration)
	TrackDatabasePerformance(query string, duration time.Duration, rowCount int)
	TrackRenderPerformance(component string, renderTime time.Duration, reRenderCount int)
	Mark(name string)
	Measure(name string, startMark string) float64
	Metrics(name string) []common.MetricSample
	MetricsSince(category string, since int64) []common.MetricSample
	Interactions() []common.InteractionEvent
	BusinessMetrics() []common.BusinessMetric
	Cleanup(now time.Time) int
	IsInterfaceNil() bool
}

// Deduplicator groups the errors by fingerprint
type Deduplicator interface {
	Track(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) common.ErrorRecord
	TrackNetworkError(url string, method string, statusCode int, err error) common.ErrorRecord
	TrackDatabaseError(query string, err error, extra map[string]interface{}) common.ErrorRecord
	TrackBusinessError(operation string, err error, extra map[string]interface{}) common.ErrorRecord
	TrackCustomError(message string, errType common.ErrorType, severity common.Severity, extra map[string]interface{}) common.ErrorRecord
	Resolve(id string, notes string) common.OpResult
	Unresolve(id string) common.OpResult
	Get(id string) (common.ErrorRecord, bool)
	Errors(filter common.ErrorFilter) []common.ErrorRecord
	Summary(timeRange time.Duration) common.ErrorSummary
	Trends(timeRange time.Duration) []common.ErrorTrendPoint
	Cleanup(now time.Time) int
	IsInterfaceNil() bool
}

// RuleEvaluator turns error records and threshold breaches into alerts
type RuleEvaluator interface {
	OnRecord(record common.ErrorRecord)
	EvaluateThreshold(ruleID string, metricName string, message string) common.OpResult
	Create(rule common.ErrorRule) string
	Update(id string, handler func(rule *common.ErrorRule)) common.OpResult
	Delete(id string) common.OpResult
	Rules() []common.ErrorRule
	IsInterfaceNil() bool
}

// Dispatcher delivers the alerts on their channels
type Dispatcher interface {
	Enqueue(alert common.AlertEvent)
	Process(ctx context.Context)
	Pending() int
	Alerts() []common.AlertEvent
	Cleanup(now time.Time) int
	IsInterfaceNil() bool
}

// HealthSampler samples the resources and computes the health verdicts
type HealthSampler interface {
	Sample(ctx context.Context)
	Evaluate() common.HealthReport
	LastReport() common.HealthReport
	IsInterfaceNil() bool
}
