package dedup

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	maxQueryLength     = 200
	numTopErrors       = 10
	trendBucket        = time.Hour
	defaultRetention   = 30 * 24 * time.Hour
	resolvedByUser     = "user"
	unknownEnvironment = "unknown"
)

var log = logger.GetOrCreate("agent/dedup")

// ArgsDeduplicator is the DTO used to create a new deduplicator
type ArgsDeduplicator struct {
	Clock       clock.Clock
	Environment string
	Retention   time.Duration
	Observers   []RecordObserver
}

type deduplicator struct {
	clock       clock.Clock
	environment string
	retention   time.Duration
	observers   []RecordObserver

	mut     sync.RWMutex
	records map[string]*common.ErrorRecord
}

// NewDeduplicator creates a new deduplicator that keeps one error record per fingerprint
func NewDeduplicator(args ArgsDeduplicator) (*deduplicator, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}
	for idx, observer := range args.Observers {
		if check.IfNil(observer) {
			return nil, fmt.Errorf("%w at index %d", common.ErrNilObserver, idx)
		}
	}

	retention := args.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	environment := args.Environment
	if len(environment) == 0 {
		environment = unknownEnvironment
	}

	return &deduplicator{
		clock:       args.Clock,
		environment: environment,
		retention:   retention,
		observers:   append([]RecordObserver(nil), args.Observers...),
		records:     make(map[string]*common.ErrorRecord),
	}, nil
}

// Track groups the occurrence under its fingerprint and forwards the resulting record to the observers.
// Empty type or severity values are inferred.
func (d *deduplicator) Track(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) common.ErrorRecord {
	fingerprint := Fingerprint(info, ctx)
	now := common.ToMillis(d.clock.Now())

	d.mut.Lock()
	record, found := d.records[fingerprint]
	if found {
		record.Occurrences++
		record.LastSeen = now
	} else {
		if len(errType) == 0 {
			errType = ClassifyType(info, ctx)
		}
		if len(severity) == 0 {
			severity = ClassifySeverity(info, ctx)
		}

		record = &common.ErrorRecord{
			ID:          fingerprint,
			Message:     info.Message,
			Stack:       info.Stack,
			Name:        info.Name,
			Type:        errType,
			Severity:    severity,
			Context:     ctx,
			Occurrences: 1,
			FirstSeen:   now,
			LastSeen:    now,
			Tags:        d.extractTags(info, ctx),
			Fingerprint: fingerprint,
		}
		record.Context.Extra = common.CloneValues(ctx.Extra)
		d.records[fingerprint] = record
	}
	result := record.Clone()
	d.mut.Unlock()

	log.Trace("error tracked", "fingerprint", fingerprint, "occurrences", result.Occurrences, "severity", result.Severity)

	for _, observer := range d.observers {
		observer.OnRecord(result.Clone())
	}

	return result
}

func (d *deduplicator) extractTags(info common.ErrorInfo, ctx common.ErrorContext) map[string]string {
	tags := map[string]string{
		"environment": d.environment,
	}
	if len(ctx.Component) > 0 {
		tags["component"] = ctx.Component
	}
	if len(ctx.Action) > 0 {
		tags["action"] = ctx.Action
	}
	if len(ctx.URL) > 0 {
		tags["url"] = ctx.URL
	}
	if len(info.Name) > 0 {
		tags["errorName"] = info.Name
	}

	return tags
}

// TrackNetworkError records a failed outbound call as an api error
func (d *deduplicator) TrackNetworkError(url string, method string, statusCode int, err error) common.ErrorRecord {
	reason := fmt.Sprintf("HTTP %d error", statusCode)
	if err != nil {
		reason = err.Error()
	}

	info := common.ErrorInfo{
		Name:    "NetworkError",
		Message: fmt.Sprintf("Network Error: %s %s - %s", method, url, reason),
	}
	ctx := common.ErrorContext{
		URL:       url,
		Component: "network",
		Action:    "api_call",
		Extra: map[string]interface{}{
			"method":     method,
			"statusCode": statusCode,
			"url":        url,
		},
	}

	return d.Track(info, ctx, common.ErrorTypeAPI, "")
}

// TrackDatabaseError records a failed query as a database error. The query is truncated to 200 characters.
func (d *deduplicator) TrackDatabaseError(query string, err error, extra map[string]interface{}) common.ErrorRecord {
	source := common.NewErrorInfo(err)
	info := common.ErrorInfo{
		Name:    source.Name,
		Message: "Database Error: " + source.Message,
		Stack:   source.Stack,
	}

	data := common.CloneValues(extra)
	if data == nil {
		data = make(map[string]interface{})
	}
	data["query"] = truncate(query, maxQueryLength)

	ctx := common.ErrorContext{
		Component: "database",
		Action:    "query_execution",
		Extra:     data,
	}

	return d.Track(info, ctx, common.ErrorTypeDatabase, "")
}

// TrackBusinessError records a failed business operation
func (d *deduplicator) TrackBusinessError(operation string, err error, extra map[string]interface{}) common.ErrorRecord {
	source := common.NewErrorInfo(err)
	info := common.ErrorInfo{
		Name:    source.Name,
		Message: fmt.Sprintf("Business Logic Error: %s - %s", operation, source.Message),
		Stack:   source.Stack,
	}
	ctx := common.ErrorContext{
		Component: "business",
		Action:    operation,
		Extra:     common.CloneValues(extra),
	}

	return d.Track(info, ctx, common.ErrorTypeBusiness, "")
}

// TrackCustomError records a manually reported error with explicit type and severity
func (d *deduplicator) TrackCustomError(message string, errType common.ErrorType, severity common.Severity, extra map[string]interface{}) common.ErrorRecord {
	info := common.ErrorInfo{
		Name:    "Error",
		Message: message,
	}
	ctx := common.ErrorContext{
		Component: "custom",
		Action:    "manual_tracking",
		Extra:     common.CloneValues(extra),
	}

	return d.Track(info, ctx, errType, severity)
}

// Resolve marks the record as resolved, stamps the resolution metadata and forwards the record to the resolution observers
func (d *deduplicator) Resolve(id string, notes string) common.OpResult {
	d.mut.Lock()
	record, found := d.records[id]
	if !found {
		d.mut.Unlock()
		common.DiagnosticsLog.Debug("resolve on unknown error record", "id", id)
		return common.Fail(common.ReasonUnknownError)
	}

	record.Resolved = true
	record.Context.ResolutionNotes = notes
	record.Context.ResolvedAt = common.ToMillis(d.clock.Now())
	record.Context.ResolvedBy = resolvedByUser
	result := record.Clone()
	d.mut.Unlock()

	d.notifyResolution(result)

	return common.Ok()
}

// Unresolve reopens the record, clears the resolution metadata and forwards the record to the resolution observers
func (d *deduplicator) Unresolve(id string) common.OpResult {
	d.mut.Lock()
	record, found := d.records[id]
	if !found {
		d.mut.Unlock()
		common.DiagnosticsLog.Debug("unresolve on unknown error record", "id", id)
		return common.Fail(common.ReasonUnknownError)
	}

	record.Resolved = false
	record.Context.ResolutionNotes = ""
	record.Context.ResolvedAt = 0
	record.Context.ResolvedBy = ""
	result := record.Clone()
	d.mut.Unlock()

	d.notifyResolution(result)

	return common.Ok()
}

func (d *deduplicator) notifyResolution(record common.ErrorRecord) {
	for _, observer := range d.observers {
		resolutionObserver, ok := observer.(ResolutionObserver)
		if ok {
			resolutionObserver.OnResolution(record.Clone())
		}
	}
}

// Get returns a copy of the record with the provided id
func (d *deduplicator) Get(id string) (common.ErrorRecord, bool) {
	d.mut.RLock()
	defer d.mut.RUnlock()

	record, found := d.records[id]
	if !found {
		return common.ErrorRecord{}, false
	}

	return record.Clone(), true
}

// Errors returns the records matching the filter, most recently seen first
func (d *deduplicator) Errors(filter common.ErrorFilter) []common.ErrorRecord {
	cutoff := int64(0)
	if filter.TimeRangeInMilliseconds > 0 {
		cutoff = common.ToMillis(d.clock.Now()) - filter.TimeRangeInMilliseconds
	}

	d.mut.RLock()
	result := make([]common.ErrorRecord, 0, len(d.records))
	for _, record := range d.records {
		if !matchesFilter(record, filter, cutoff) {
			continue
		}
		result = append(result, record.Clone())
	}
	d.mut.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].LastSeen == result[j].LastSeen {
			return result[i].ID < result[j].ID
		}
		return result[i].LastSeen > result[j].LastSeen
	})

	return result
}

func matchesFilter(record *common.ErrorRecord, filter common.ErrorFilter, cutoff int64) bool {
	if len(filter.Type) > 0 && record.Type != filter.Type {
		return false
	}
	if len(filter.Severity) > 0 && record.Severity != filter.Severity {
		return false
	}
	if filter.Resolved != nil && record.Resolved != *filter.Resolved {
		return false
	}
	if len(filter.Component) > 0 && record.Context.Component != filter.Component {
		return false
	}

	return record.LastSeen > cutoff
}

// Summary aggregates the records seen within the provided time range
func (d *deduplicator) Summary(timeRange time.Duration) common.ErrorSummary {
	cutoff := common.ToMillis(d.clock.Now().Add(-timeRange))

	summary := common.ErrorSummary{
		ErrorsByType:      make(map[string]int),
		ErrorsByComponent: make(map[string]int),
	}

	recent := make([]common.ErrorRecord, 0)
	d.mut.RLock()
	for _, record := range d.records {
		if record.LastSeen > cutoff {
			recent = append(recent, record.Clone())
		}
	}
	d.mut.RUnlock()

	for _, record := range recent {
		summary.TotalErrors += record.Occurrences
		if record.Resolved {
			summary.ResolvedErrors++
		}
		if record.Severity == common.SeverityCritical {
			summary.CriticalErrors++
		}
		summary.ErrorsByType[string(record.Type)] += record.Occurrences
		if len(record.Context.Component) > 0 {
			summary.ErrorsByComponent[record.Context.Component] += record.Occurrences
		}
	}
	summary.UniqueErrors = len(recent)

	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Occurrences == recent[j].Occurrences {
			return recent[i].ID < recent[j].ID
		}
		return recent[i].Occurrences > recent[j].Occurrences
	})
	if len(recent) > numTopErrors {
		recent = recent[:numTopErrors]
	}
	summary.TopErrors = recent

	return summary
}

// Trends buckets the records by their last seen hour over the provided time range
func (d *deduplicator) Trends(timeRange time.Duration) []common.ErrorTrendPoint {
	now := common.ToMillis(d.clock.Now())
	cutoff := now - timeRange.Milliseconds()
	interval := trendBucket.Milliseconds()

	d.mut.RLock()
	defer d.mut.RUnlock()

	trends := make([]common.ErrorTrendPoint, 0)
	for start := cutoff; start <= now; start += interval {
		end := start + interval
		point := common.ErrorTrendPoint{
			Timestamp: start,
		}
		for _, record := range d.records {
			if record.LastSeen < start || record.LastSeen >= end {
				continue
			}

			point.ErrorCount += record.Occurrences
			if record.Severity == common.SeverityCritical {
				point.CriticalCount += record.Occurrences
			}
			if record.Resolved {
				point.ResolvedCount++
			}
		}
		trends = append(trends, point)
	}

	return trends
}

// Cleanup removes the records not seen within the retention window and returns how many were removed
func (d *deduplicator) Cleanup(now time.Time) int {
	cutoff := common.ToMillis(now.Add(-d.retention))

	d.mut.Lock()
	defer d.mut.Unlock()

	removed := 0
	for id, record := range d.records {
		if record.LastSeen < cutoff {
			delete(d.records, id)
			removed++
		}
	}

	if removed > 0 {
		log.Debug("cleaned error records", "removed", removed, "remaining", len(d.records))
	}

	return removed
}

// Len returns the number of distinct error records
func (d *deduplicator) Len() int {
	d.mut.RLock()
	defer d.mut.RUnlock()

	return len(d.records)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (d *deduplicator) IsInterfaceNil() bool {
	return d == nil
}
