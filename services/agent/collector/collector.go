package collector

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/rules"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	errorRateWindow        = 5 * time.Minute
	responseTimeMarker     = "response_time"
	errorRateMetricName    = "error_rate"
	defaultTraceTimeout    = 5 * time.Minute
	defaultMetricRetention = time.Hour
	serviceTag             = "service"
	environmentTag         = "environment"
	versionTag             = "version"
	categoryTag            = "category"
)

var log = logger.GetOrCreate("agent/collector")

var ignoredErrorMarkers = []string{
	"ServiceWorker",
	"CacheStorage",
	"The object is in an invalid state",
	"Failed to update a ServiceWorker",
}

// ArgsCollector is the DTO used to create a new collector
type ArgsCollector struct {
	Config     config.Config
	Clock      clock.Clock
	Sampler    Sampler
	ErrorSink  ErrorSink
	Thresholds ThresholdHandler
	Observer   SampleObserver
}

type collector struct {
	enabled        bool
	debug          bool
	service        string
	environment    string
	version        string
	sessionID      string
	thresholds     config.ThresholdsConfig
	maxEntries     int
	retention      retentionWindows
	traceTimeout   time.Duration
	createdAt      time.Time
	clock          clock.Clock
	sampler        Sampler
	errorSink      ErrorSink
	thresholdCheck ThresholdHandler
	observer       SampleObserver

	mut          sync.RWMutex
	metrics      []common.MetricSample
	interactions []common.InteractionEvent
	business     []common.BusinessMetric
	errorTimes   []time.Time
	traces       map[string]*activeTrace
	marks        map[string]time.Time
}

type retentionWindows struct {
	metrics      time.Duration
	interactions time.Duration
	business     time.Duration
}

// NewCollector creates the single entry point for metrics, errors, interactions and business metrics
func NewCollector(args ArgsCollector) (*collector, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}
	if check.IfNil(args.Sampler) {
		return nil, ErrNilSampler
	}
	if check.IfNil(args.ErrorSink) {
		return nil, ErrNilErrorSink
	}
	if check.IfNil(args.Thresholds) {
		return nil, ErrNilThresholdHandler
	}
	if args.Config.MaxLogEntries <= 0 {
		return nil, common.ErrInvalidMaxLogEntries
	}

	cfg := args.Config
	return &collector{
		enabled:     cfg.Enabled,
		debug:       cfg.Debug,
		service:     cfg.Name,
		environment: cfg.Environment,
		version:     cfg.Version,
		sessionID:   uuid.NewString(),
		thresholds:  cfg.Thresholds,
		maxEntries:  cfg.MaxLogEntries,
		retention: retentionWindows{
			metrics:      secondsOrDefault(cfg.Retention.MetricsInSeconds, defaultMetricRetention),
			interactions: secondsOrDefault(cfg.Retention.InteractionsInSeconds, defaultMetricRetention),
			business:     secondsOrDefault(cfg.Retention.BusinessInSeconds, defaultMetricRetention),
		},
		traceTimeout:   secondsOrDefault(cfg.TraceTimeoutInSeconds, defaultTraceTimeout),
		createdAt:      args.Clock.Now(),
		clock:          args.Clock,
		sampler:        args.Sampler,
		errorSink:      args.ErrorSink,
		thresholdCheck: args.Thresholds,
		observer:       args.Observer,
		metrics:        make([]common.MetricSample, 0),
		interactions:   make([]common.InteractionEvent, 0),
		business:       make([]common.BusinessMetric, 0),
		errorTimes:     make([]time.Time, 0),
		traces:         make(map[string]*activeTrace),
		marks:          make(map[string]time.Time),
	}, nil
}

func secondsOrDefault(value uint32, defaultValue time.Duration) time.Duration {
	if value == 0 {
		return defaultValue
	}

	return time.Duration(value) * time.Second
}

func appendCapped[T any](entries []T, entry T, maxEntries int) []T {
	entries = append(entries, entry)
	if len(entries) > maxEntries {
		entries = append(entries[:0:0], entries[len(entries)-maxEntries:]...)
	}

	return entries
}

func (c *collector) nowMillis() int64 {
	return common.ToMillis(c.clock.Now())
}

func (c *collector) logRecorded(kind string, name string) {
	if c.debug {
		log.Debug("recorded locally", "kind", kind, "name", name)
		return
	}

	log.Trace("recorded locally", "kind", kind, "name", name)
}

// RecordMetric keeps the sample if the sampling draw succeeds, then checks the static response time threshold
func (c *collector) RecordMetric(sample common.MetricSample) {
	if !c.enabled || !c.sampler.ShouldSample() {
		return
	}

	c.storeMetric(sample, nil)
}

// RecordSystemMetric keeps the sample without sampling, tagged with the provided area
func (c *collector) RecordSystemMetric(sample common.MetricSample, area string) {
	if !c.enabled {
		return
	}

	c.storeMetric(sample, map[string]string{categoryTag: area})
}

func (c *collector) storeMetric(sample common.MetricSample, extraTags map[string]string) {
	if sample.Timestamp == 0 {
		sample.Timestamp = c.nowMillis()
	}
	if len(sample.Unit) == 0 {
		sample.Unit = common.UnitCustom
	}

	tags := common.CloneStrings(sample.Tags)
	if tags == nil {
		tags = make(map[string]string)
	}
	for key, value := range extraTags {
		tags[key] = value
	}
	tags[environmentTag] = c.environment
	tags[versionTag] = c.version
	sample.Tags = tags
	sample.Context = common.CloneValues(sample.Context)

	c.mut.Lock()
	c.metrics = appendCapped(c.metrics, sample, c.maxEntries)
	c.mut.Unlock()

	c.logRecorded("metric", sample.Name)

	if !check.IfNil(c.observer) {
		c.observer.OnSample(sample)
	}

	c.checkResponseTime(sample)
}

func (c *collector) checkResponseTime(sample common.MetricSample) {
	limit := c.thresholds.ResponseTimeInMilliseconds
	if limit <= 0 || !strings.Contains(sample.Name, responseTimeMarker) || sample.Value <= limit {
		return
	}

	message := fmt.Sprintf("%s took %.0fms, above %.0fms", sample.Name, sample.Value, limit)
	c.thresholdCheck.EvaluateThreshold(rules.SlowResponseRuleID, sample.Name, message)
}

// RecordError forwards the error to the error sink unless it is a known harmless error.
// It returns false if the error was not recorded.
func (c *collector) RecordError(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
	if !c.enabled {
		return common.ErrorRecord{}, false
	}
	if IsIgnoredError(info.Message) {
		log.Trace("ignored harmless error", "message", info.Message)
		return common.ErrorRecord{}, false
	}

	if len(ctx.SessionID) == 0 {
		ctx.SessionID = c.sessionID
	}

	record := c.errorSink.Track(info, ctx, errType, severity)
	c.logRecorded("error", record.ID)
	c.checkErrorRate()

	return record, true
}

// IsIgnoredError returns true if the message matches the harmless errors deny-list
func IsIgnoredError(message string) bool {
	for _, marker := range ignoredErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}

	return false
}

func (c *collector) checkErrorRate() {
	now := c.clock.Now()
	cutoff := now.Add(-errorRateWindow)

	c.mut.Lock()
	c.errorTimes = appendCapped(c.errorTimes, now, c.maxEntries)
	kept := c.errorTimes[:0]
	for _, t := range c.errorTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.errorTimes = kept
	numRecent := len(kept)
	c.mut.Unlock()

	limit := c.thresholds.ErrorRatePerMinute
	rate := float64(numRecent) / errorRateWindow.Minutes()
	if limit <= 0 || rate <= limit {
		return
	}

	message := fmt.Sprintf("error rate %.1f/min above %.1f/min", rate, limit)
	c.thresholdCheck.EvaluateThreshold(rules.HighErrorRateRuleID, errorRateMetricName, message)
}

// RecordInteraction keeps the event if the sampling draw succeeds
func (c *collector) RecordInteraction(event common.InteractionEvent) {
	if !c.enabled || !c.sampler.ShouldSample() {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = c.nowMillis()
	}
	if len(event.SessionID) == 0 {
		event.SessionID = c.sessionID
	}
	event.Properties = common.CloneValues(event.Properties)

	c.mut.Lock()
	c.interactions = appendCapped(c.interactions, event, c.maxEntries)
	c.mut.Unlock()

	c.logRecorded("interaction", event.Target)
}

// RecordBusinessMetric always keeps the metric, tagged with the environment and the category
func (c *collector) RecordBusinessMetric(metric common.BusinessMetric) {
	if !c.enabled {
		return
	}

	if metric.Timestamp == 0 {
		metric.Timestamp = c.nowMillis()
	}
	dimensions := common.CloneStrings(metric.Dimensions)
	if dimensions == nil {
		dimensions = make(map[string]string)
	}
	dimensions[environmentTag] = c.environment
	dimensions[categoryTag] = string(metric.Category)
	metric.Dimensions = dimensions

	c.mut.Lock()
	c.business = appendCapped(c.business, metric, c.maxEntries)
	c.mut.Unlock()

	c.logRecorded("business", metric.Name)
}

// Metrics returns a copy of the kept samples. An empty name returns all of them.
func (c *collector) Metrics(name string) []common.MetricSample {
	c.mut.RLock()
	defer c.mut.RUnlock()

	result := make([]common.MetricSample, 0, len(c.metrics))
	for _, sample := range c.metrics {
		if len(name) > 0 && sample.Name != name {
			continue
		}

		sample.Tags = common.CloneStrings(sample.Tags)
		sample.Context = common.CloneValues(sample.Context)
		result = append(result, sample)
	}

	return result
}

// MetricsSince returns a copy of the samples with the provided category tag recorded at or after the timestamp
func (c *collector) MetricsSince(category string, since int64) []common.MetricSample {
	c.mut.RLock()
	defer c.mut.RUnlock()

	result := make([]common.MetricSample, 0)
	for _, sample := range c.metrics {
		if sample.Timestamp < since || sample.Tags[categoryTag] != category {
			continue
		}

		sample.Tags = common.CloneStrings(sample.Tags)
		sample.Context = common.CloneValues(sample.Context)
		result = append(result, sample)
	}

	return result
}

// Interactions returns a copy of the kept interaction events
func (c *collector) Interactions() []common.InteractionEvent {
	c.mut.RLock()
	defer c.mut.RUnlock()

	result := make([]common.InteractionEvent, 0, len(c.interactions))
	for _, event := range c.interactions {
		event.Properties = common.CloneValues(event.Properties)
		result = append(result, event)
	}

	return result
}

// BusinessMetrics returns a copy of the kept business metrics
func (c *collector) BusinessMetrics() []common.BusinessMetric {
	c.mut.RLock()
	defer c.mut.RUnlock()

	result := make([]common.BusinessMetric, 0, len(c.business))
	for _, metric := range c.business {
		metric.Dimensions = common.CloneStrings(metric.Dimensions)
		result = append(result, metric)
	}

	return result
}

// Cleanup sweeps every log by its retention window, drops the stale traces and marks and returns the number of removed entries
func (c *collector) Cleanup(now time.Time) int {
	metricsCutoff := common.ToMillis(now.Add(-c.retention.metrics))
	interactionsCutoff := common.ToMillis(now.Add(-c.retention.interactions))
	businessCutoff := common.ToMillis(now.Add(-c.retention.business))
	traceCutoff := now.Add(-c.traceTimeout)

	c.mut.Lock()
	defer c.mut.Unlock()

	removed := 0

	metrics := c.metrics[:0]
	for _, sample := range c.metrics {
		if sample.Timestamp >= metricsCutoff {
			metrics = append(metrics, sample)
		}
	}
	removed += len(c.metrics) - len(metrics)
	c.metrics = metrics

	interactions := c.interactions[:0]
	for _, event := range c.interactions {
		if event.Timestamp >= interactionsCutoff {
			interactions = append(interactions, event)
		}
	}
	removed += len(c.interactions) - len(interactions)
	c.interactions = interactions

	business := c.business[:0]
	for _, metric := range c.business {
		if metric.Timestamp >= businessCutoff {
			business = append(business, metric)
		}
	}
	removed += len(c.business) - len(business)
	c.business = business

	for id, trace := range c.traces {
		if trace.started.Before(traceCutoff) {
			delete(c.traces, id)
			removed++
			common.DiagnosticsLog.Debug("dropped stale trace", "id", id, "operation", trace.span.Operation)
		}
	}

	// marks are not records, they expire with the trace timeout without counting as removed
	for name, at := range c.marks {
		if at.Before(traceCutoff) {
			delete(c.marks, name)
		}
	}

	if removed > 0 {
		log.Debug("collector cleanup", "removed", removed)
	}

	return removed
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *collector) IsInterfaceNil() bool {
	return c == nil
}
