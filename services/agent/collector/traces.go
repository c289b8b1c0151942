package collector

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

type activeTrace struct {
	span    common.TraceSpan
	started time.Time
}

// StartTrace opens a timing span for the named operation
func (c *collector) StartTrace(operation string) common.TraceSpan {
	now := c.clock.Now()
	span := common.TraceSpan{
		TraceID:   uuid.NewString(),
		SpanID:    strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Operation: operation,
		StartTime: now.UnixNano(),
		StartedAt: common.ToMillis(now),
		Tags: map[string]string{
			environmentTag: c.environment,
			serviceTag:     c.service,
		},
	}
	if !c.enabled {
		return span
	}

	c.mut.Lock()
	c.traces[span.TraceID] = &activeTrace{
		span:    span,
		started: now,
	}
	c.mut.Unlock()

	result := span
	result.Tags = common.CloneStrings(span.Tags)

	return result
}

// EndTrace closes the span and records its duration as a trace.<operation> sample
func (c *collector) EndTrace(traceID string, tags map[string]string) common.OpResult {
	if !c.enabled {
		return common.Fail(common.ReasonDisabled)
	}

	c.mut.Lock()
	trace, found := c.traces[traceID]
	delete(c.traces, traceID)
	c.mut.Unlock()

	if !found {
		common.DiagnosticsLog.Debug("end of unknown trace", "id", traceID)
		return common.Fail(common.ReasonUnknownTrace)
	}

	merged := common.CloneStrings(trace.span.Tags)
	for key, value := range tags {
		merged[key] = value
	}

	duration := c.clock.Since(trace.started)
	c.RecordMetric(common.MetricSample{
		Name:  "trace." + trace.span.Operation,
		Value: float64(duration) / float64(time.Millisecond),
		Unit:  common.UnitMilliseconds,
		Tags:  merged,
	})

	return common.Ok()
}

// CancelTrace drops the span without recording anything
func (c *collector) CancelTrace(traceID string) common.OpResult {
	if !c.enabled {
		return common.Fail(common.ReasonDisabled)
	}

	c.mut.Lock()
	defer c.mut.Unlock()

	_, found := c.traces[traceID]
	if !found {
		common.DiagnosticsLog.Debug("cancel of unknown trace", "id", traceID)
		return common.Fail(common.ReasonUnknownTrace)
	}

	delete(c.traces, traceID)

	return common.Ok()
}

// NumActiveTraces returns the number of open spans
func (c *collector) NumActiveTraces() int {
	c.mut.RLock()
	defer c.mut.RUnlock()

	return len(c.traces)
}
