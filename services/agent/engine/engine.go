package engine

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/collector"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/dedup"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/dispatch"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/health"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/rules"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultProbeTimeout = 10 * time.Second
	healthSampleTimeout = 30 * time.Second
	reportTimeout       = 10 * time.Second
)

var log = logger.GetOrCreate("agent/engine")

// ArgsAgentEngine is the DTO used to create a new engine
type ArgsAgentEngine struct {
	Config     config.Config
	Clock      clock.Clock
	Rules      []common.ErrorRule
	Channels   []dispatch.Channel
	Registerer prometheus.Registerer
	Sampler    Sampler
	Prober     Prober
	Reporter   Reporter
}

// agentEngine owns the whole monitoring pipeline: collector, deduplicator, rules, dispatcher and health sampler.
// A nil reporter means local-only mode.
type agentEngine struct {
	config       config.Config
	clock        clock.Clock
	collector    Collector
	deduplicator Deduplicator
	rules        RuleEvaluator
	dispatcher   Dispatcher
	health       HealthSampler
	reporter     Reporter
	outbox       *outbox
}

// NewAgentEngine creates a new engine instance and wires all the components together
func NewAgentEngine(args ArgsAgentEngine) (*agentEngine, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}

	cfg := args.Config
	sampler := args.Sampler
	if check.IfNil(sampler) {
		randomSampler, err := collector.NewRandomSampler(cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		sampler = randomSampler
	}

	prober := args.Prober
	if check.IfNil(prober) {
		httpProber, err := health.NewHTTPProber(defaultProbeTimeout, args.Clock)
		if err != nil {
			return nil, err
		}
		prober = httpProber
	}

	e := &agentEngine{
		config:   cfg,
		clock:    args.Clock,
		reporter: args.Reporter,
	}

	var alertObserver dispatch.AlertObserver
	var sampleObserver collector.SampleObserver
	var recordObservers []dedup.RecordObserver
	if !check.IfNil(args.Reporter) {
		e.outbox = newOutbox(cfg.MaxLogEntries)
		alertObserver = e.outbox
		sampleObserver = e.outbox
	}

	dispatcher, err := dispatch.NewDispatcher(dispatch.ArgsDispatcher{
		Clock:                      args.Clock,
		Channels:                   args.Channels,
		Observer:                   alertObserver,
		Registerer:                 args.Registerer,
		MaxRetries:                 cfg.Dispatch.MaxRetries,
		InitialBackoff:             time.Duration(cfg.Dispatch.InitialBackoffInMilliseconds) * time.Millisecond,
		MaxBackoff:                 time.Duration(cfg.Dispatch.MaxBackoffInMilliseconds) * time.Millisecond,
		BreakerConsecutiveFailures: cfg.Dispatch.BreakerConsecutiveFailures,
		SendTimeout:                time.Duration(cfg.Dispatch.SendTimeoutInSeconds) * time.Second,
		AlertRetention:             time.Duration(cfg.Retention.AlertsInSeconds) * time.Second,
		MaxAlerts:                  cfg.MaxLogEntries,
	})
	if err != nil {
		return nil, err
	}
	e.dispatcher = dispatcher

	evaluator, err := rules.NewRuleEvaluator(rules.ArgsRuleEvaluator{
		Clock:            args.Clock,
		Sink:             dispatcher,
		CooldownEnforced: cfg.CooldownEnforced,
		Rules:            args.Rules,
	})
	if err != nil {
		return nil, err
	}
	e.rules = evaluator

	recordObservers = append(recordObservers, evaluator)
	if e.outbox != nil {
		recordObservers = append(recordObservers, e.outbox)
	}
	deduplicator, err := dedup.NewDeduplicator(dedup.ArgsDeduplicator{
		Clock:       args.Clock,
		Environment: cfg.Environment,
		Retention:   time.Duration(cfg.Retention.ErrorsInSeconds) * time.Second,
		Observers:   recordObservers,
	})
	if err != nil {
		return nil, err
	}
	e.deduplicator = deduplicator

	metricsCollector, err := collector.NewCollector(collector.ArgsCollector{
		Config:     cfg,
		Clock:      args.Clock,
		Sampler:    sampler,
		ErrorSink:  deduplicator,
		Thresholds: evaluator,
		Observer:   sampleObserver,
	})
	if err != nil {
		return nil, err
	}
	e.collector = metricsCollector

	healthSampler, err := health.NewHealthSampler(health.ArgsHealthSampler{
		Clock:      args.Clock,
		Recorder:   metricsCollector,
		Errors:     deduplicator,
		Prober:     prober,
		Probes:     cfg.Probes,
		Thresholds: cfg.Thresholds,
	})
	if err != nil {
		return nil, err
	}
	e.health = healthSampler

	log.Debug("monitoring engine created", "name", cfg.Name, "environment", cfg.Environment,
		"rules", len(args.Rules), "channels", len(args.Channels), "reporting", e.outbox != nil)

	return e, nil
}

// RecordMetric records a sampled metric sample
func (e *agentEngine) RecordMetric(sample common.MetricSample) {
	e.collector.RecordMetric(sample)
}

// RecordError records a Go error. It returns false if the error was filtered out or monitoring is disabled.
func (e *agentEngine) RecordError(err error, ctx common.ErrorContext) (common.ErrorRecord, bool) {
	return e.collector.RecordError(common.NewErrorInfo(err), ctx, "", "")
}

// TrackError records an error with explicit type and severity overrides. Empty values are inferred.
func (e *agentEngine) TrackError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
	return e.collector.RecordError(info, ctx, errType, severity)
}

// TrackNetworkError records a failed outgoing call
func (e *agentEngine) TrackNetworkError(url string, method string, statusCode int, err error) common.ErrorRecord {
	return e.deduplicator.TrackNetworkError(url, method, statusCode, err)
}

// TrackDatabaseError records a failed query
func (e *agentEngine) TrackDatabaseError(query string, err error, extra map[string]interface{}) common.ErrorRecord {
	return e.deduplicator.TrackDatabaseError(query, err, extra)
}

// TrackBusinessError records a failed business operation
func (e *agentEngine) TrackBusinessError(operation string, err error, extra map[string]interface{}) common.ErrorRecord {
	return e.deduplicator.TrackBusinessError(operation, err, extra)
}

// TrackCustomError records an application defined error
func (e *agentEngine) TrackCustomError(message string, errType common.ErrorType, severity common.Severity, extra map[string]interface{}) common.ErrorRecord {
	return e.deduplicator.TrackCustomError(message, errType, severity, extra)
}

// RecordInteraction records a sampled user interaction
func (e *agentEngine) RecordInteraction(event common.InteractionEvent) {
	e.collector.RecordInteraction(event)
}

// RecordBusinessMetric records a business figure
func (e *agentEngine) RecordBusinessMetric(metric common.BusinessMetric) {
	e.collector.RecordBusinessMetric(metric)
}

// StartTrace opens a timing span
func (e *agentEngine) StartTrace(operation string) common.TraceSpan {
	return e.collector.StartTrace(operation)
}

// EndTrace closes a timing span
func (e *agentEngine) EndTrace(traceID string, tags map[string]string) common.OpResult {
	return e.collector.EndTrace(traceID, tags)
}

// CancelTrace drops a timing span
func (e *agentEngine) CancelTrace(traceID string) common.OpResult {
	return e.collector.CancelTrace(traceID)
}

// TrackAPIPerformance records an API call outcome
func (e *agentEngine) TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration) {
	e.collector.TrackAPIPerformance(endpoint, method, statusCode, duration)
}

// TrackDatabasePerformance records a query duration
func (e *agentEngine) TrackDatabasePerformance(query string, duration time.Duration, rowCount int) {
	e.collector.TrackDatabasePerformance(query, duration, rowCount)
}

// TrackRenderPerformance records a component render
func (e *agentEngine) TrackRenderPerformance(component string, renderTime time.Duration, reRenderCount int) {
	e.collector.TrackRenderPerformance(component, renderTime, reRenderCount)
}

// Mark stores a named point in time
func (e *agentEngine) Mark(name string) {
	e.collector.Mark(name)
}

// Measure records the time elapsed since the start mark
func (e *agentEngine) Measure(name string, startMark string) float64 {
	return e.collector.Measure(name, startMark)
}

// Metrics returns the kept samples with the provided name, or all of them for an empty name
func (e *agentEngine) Metrics(name string) []common.MetricSample {
	return e.collector.Metrics(name)
}

// Interactions returns the kept interaction events
func (e *agentEngine) Interactions() []common.InteractionEvent {
	return e.collector.Interactions()
}

// BusinessMetrics returns the kept business metrics
func (e *agentEngine) BusinessMetrics() []common.BusinessMetric {
	return e.collector.BusinessMetrics()
}

// ResolveError marks the error record as resolved
func (e *agentEngine) ResolveError(id string, notes string) common.OpResult {
	return e.deduplicator.Resolve(id, notes)
}

// UnresolveError reopens the error record
func (e *agentEngine) UnresolveError(id string) common.OpResult {
	return e.deduplicator.Unresolve(id)
}

// Error returns the error record with the provided id
func (e *agentEngine) Error(id string) (common.ErrorRecord, bool) {
	return e.deduplicator.Get(id)
}

// Errors returns the error records matching the filter, newest first
func (e *agentEngine) Errors(filter common.ErrorFilter) []common.ErrorRecord {
	return e.deduplicator.Errors(filter)
}

// ErrorSummary summarizes the errors seen in the time range
func (e *agentEngine) ErrorSummary(timeRange time.Duration) common.ErrorSummary {
	return e.deduplicator.Summary(timeRange)
}

// ErrorTrends returns the hourly error buckets of the time range
func (e *agentEngine) ErrorTrends(timeRange time.Duration) []common.ErrorTrendPoint {
	return e.deduplicator.Trends(timeRange)
}

// CreateRule adds an alert rule and returns its id
func (e *agentEngine) CreateRule(rule common.ErrorRule) string {
	return e.rules.Create(rule)
}

// UpdateRule changes an existing alert rule
func (e *agentEngine) UpdateRule(id string, handler func(rule *common.ErrorRule)) common.OpResult {
	return e.rules.Update(id, handler)
}

// DeleteRule removes an alert rule
func (e *agentEngine) DeleteRule(id string) common.OpResult {
	return e.rules.Delete(id)
}

// Rules returns a copy of the alert rules
func (e *agentEngine) Rules() []common.ErrorRule {
	return e.rules.Rules()
}

// Alerts returns the alert log
func (e *agentEngine) Alerts() []common.AlertEvent {
	return e.dispatcher.Alerts()
}

// PendingAlerts returns the number of alerts waiting for delivery
func (e *agentEngine) PendingAlerts() int {
	return e.dispatcher.Pending()
}

// HealthReport returns the latest health verdict
func (e *agentEngine) HealthReport() common.HealthReport {
	return e.health.LastReport()
}

// CollectHealth samples the resources and the external services, then evaluates the area verdicts
func (e *agentEngine) CollectHealth(ctx context.Context) {
	e.CollectMetrics(ctx)
	e.EvaluateHealth(ctx)
}

// CollectMetrics samples the resources and the external services
func (e *agentEngine) CollectMetrics(ctx context.Context) {
	if !e.config.Enabled {
		return
	}

	sampleCtx, cancel := context.WithTimeout(ctx, healthSampleTimeout)
	defer cancel()

	e.health.Sample(sampleCtx)
}

// EvaluateHealth computes the area verdicts over the samples of the health window
func (e *agentEngine) EvaluateHealth(_ context.Context) {
	if !e.config.Enabled {
		return
	}

	report := e.health.Evaluate()
	log.Debug("health evaluated", "status", report.Status)
}

// DispatchAlerts drains the alert queue
func (e *agentEngine) DispatchAlerts(ctx context.Context) {
	e.dispatcher.Process(ctx)
}

// Cleanup sweeps every store by its retention window
func (e *agentEngine) Cleanup(_ context.Context) {
	now := e.clock.Now()
	numMetrics := e.collector.Cleanup(now)
	numErrors := e.deduplicator.Cleanup(now)
	numAlerts := e.dispatcher.Cleanup(now)

	log.Debug("cleanup done", "metrics", numMetrics, "errors", numErrors, "alerts", numAlerts)
}

// Report drains the outbox and sends it to the ingestion service. Failed batches are discarded.
func (e *agentEngine) Report(ctx context.Context) {
	if e.outbox == nil {
		return
	}

	batch := e.outbox.Drain(e.config.Name)
	if batch.IsEmpty() {
		return
	}

	reportCtx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	err := e.reporter.Report(reportCtx, batch)
	if err != nil {
		log.Warn("failed to report, the batch will be discarded", "error", err,
			"samples", len(batch.Samples), "errors", len(batch.Errors), "alerts", len(batch.Alerts))
	}
}

// IsReporting returns true if the engine pushes batches to an ingestion service
func (e *agentEngine) IsReporting() bool {
	return e.outbox != nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *agentEngine) IsInterfaceNil() bool {
	return e == nil
}
