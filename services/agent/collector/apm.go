package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const (
	maxQueryPreview  = 100
	maxQueryContext  = 200
	maxQueryFragment = 50
)

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func preview(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}

// TrackAPIPerformance records an api.response_time sample and synthesizes errors for slow or failed calls
func (c *collector) TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration) {
	if !c.enabled {
		return
	}

	ms := toMillis(duration)
	c.RecordMetric(common.MetricSample{
		Name:  "api.response_time",
		Value: ms,
		Unit:  common.UnitMilliseconds,
		Tags: map[string]string{
			"endpoint":  endpoint,
			"method":    method,
			"status":    strconv.Itoa(statusCode),
			categoryTag: "api",
		},
		Context: map[string]interface{}{
			"operation": method + " " + endpoint,
		},
	})

	if c.thresholds.APISlowInMilliseconds > 0 && ms > c.thresholds.APISlowInMilliseconds {
		c.RecordError(
			common.ErrorInfo{Name: "Error", Message: fmt.Sprintf("Slow API response: %s %s", method, endpoint)},
			common.ErrorContext{
				URL:       endpoint,
				Component: "api",
				Action:    "slow_response",
				Extra: map[string]interface{}{
					"method":     method,
					"duration":   ms,
					"statusCode": statusCode,
				},
			}, "", "")
	}

	if statusCode >= 400 {
		c.RecordError(
			common.ErrorInfo{Name: "Error", Message: fmt.Sprintf("HTTP Error: %s %s returned %d", method, endpoint, statusCode)},
			common.ErrorContext{
				URL:       endpoint,
				Component: "api",
				Action:    "http_error",
				Extra: map[string]interface{}{
					"method":     method,
					"statusCode": statusCode,
				},
			}, "", "")
	}
}

func databaseOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}

	return strings.ToUpper(fields[0])
}

// TrackDatabasePerformance records a database.query_time sample and synthesizes an error for slow queries
func (c *collector) TrackDatabasePerformance(query string, duration time.Duration, rowCount int) {
	if !c.enabled {
		return
	}

	ms := toMillis(duration)
	c.RecordSystemMetric(common.MetricSample{
		Name:  "database.query_time",
		Value: ms,
		Unit:  common.UnitMilliseconds,
		Tags: map[string]string{
			"operation": databaseOperation(query),
		},
		Context: map[string]interface{}{
			"operation": "Database: " + preview(query, maxQueryFragment),
		},
	}, "database")

	if c.thresholds.DatabaseSlowInMilliseconds > 0 && ms > c.thresholds.DatabaseSlowInMilliseconds {
		c.RecordError(
			common.ErrorInfo{Name: "Error", Message: "Slow database query: " + preview(query, maxQueryPreview)},
			common.ErrorContext{
				Component: "database",
				Action:    "slow_query",
				Extra: map[string]interface{}{
					"query":    preview(query, maxQueryContext),
					"duration": ms,
					"rowCount": rowCount,
				},
			}, "", "")
	}
}

// TrackRenderPerformance records a render.component_time sample and synthesizes errors for slow or repeated renders
func (c *collector) TrackRenderPerformance(component string, renderTime time.Duration, reRenderCount int) {
	if !c.enabled {
		return
	}

	ms := toMillis(renderTime)
	c.RecordMetric(common.MetricSample{
		Name:  "render.component_time",
		Value: ms,
		Unit:  common.UnitMilliseconds,
		Tags: map[string]string{
			"component": component,
			categoryTag: "render",
		},
	})

	if c.thresholds.RenderSlowInMilliseconds > 0 && ms > c.thresholds.RenderSlowInMilliseconds {
		c.RecordError(
			common.ErrorInfo{Name: "Error", Message: "Slow component render: " + component},
			common.ErrorContext{
				Component: component,
				Action:    "slow_render",
				Extra: map[string]interface{}{
					"renderTime":    ms,
					"reRenderCount": reRenderCount,
				},
			}, "", "")
	}

	if c.thresholds.MaxRenderCount > 0 && reRenderCount > c.thresholds.MaxRenderCount {
		c.RecordError(
			common.ErrorInfo{Name: "Error", Message: "Excessive re-renders: " + component},
			common.ErrorContext{
				Component: component,
				Action:    "excessive_rerenders",
				Extra: map[string]interface{}{
					"reRenderCount": reRenderCount,
					"renderTime":    ms,
				},
			}, "", "")
	}
}

// Mark stores the current time under the provided name
func (c *collector) Mark(name string) {
	c.mut.Lock()
	c.marks[name] = c.clock.Now()
	c.mut.Unlock()
}

// Measure records a custom.<name> sample with the time elapsed since the start mark and returns it in milliseconds.
// An unknown or empty start mark measures from the collector creation.
func (c *collector) Measure(name string, startMark string) float64 {
	c.mut.RLock()
	start, found := c.marks[startMark]
	c.mut.RUnlock()
	if !found {
		start = c.createdAt
	}

	ms := toMillis(c.clock.Since(start))
	c.RecordMetric(common.MetricSample{
		Name:  "custom." + name,
		Value: ms,
		Unit:  common.UnitMilliseconds,
		Tags: map[string]string{
			"type":   "custom",
			"metric": name,
		},
		Context: map[string]interface{}{
			"operation": "Custom: " + name,
		},
	})

	return ms
}
