package common

import (
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// MetricValue represents a single reported data point
type MetricValue struct {
	Value      float64 `json:"value"`
	RecordedAt int64   `json:"recordedAt"`
}

// MetricHistory encapsulates a metric's definition and its recent time-series values.
// Name is qualified with the reporting agent: <agent>.<sample name>
type MetricHistory struct {
	Name           string        `json:"name"`
	Agent          string        `json:"agent"`
	Unit           string        `json:"unit"`
	NumAggregation int           `json:"numAggregation"`
	DisplayOrder   int           `json:"displayOrder"`
	History        []MetricValue `json:"history"`
}

// StoredError is an error record as last reported by an agent
type StoredError struct {
	Agent string `json:"agent"`
	agentCommon.ErrorRecord
}

// StoredAlert is a notified alert as reported by an agent
type StoredAlert struct {
	Agent string `json:"agent"`
	agentCommon.AlertEvent
}

// ErrorQuery selects stored error records. Zero values do not filter.
type ErrorQuery struct {
	Agent    string
	Type     string
	Severity string
	Resolved *bool
	Limit    int
}

// AlertQuery selects stored alerts. Zero values do not filter.
type AlertQuery struct {
	Agent string
	Since int64
	Limit int
}

// ErrorSummary aggregates the error records seen by all agents in a time range
type ErrorSummary struct {
	TotalErrors      int            `json:"totalErrors"`
	UniqueErrors     int            `json:"uniqueErrors"`
	ResolvedErrors   int            `json:"resolvedErrors"`
	CriticalErrors   int            `json:"criticalErrors"`
	ErrorsByType     map[string]int `json:"errorsByType"`
	ErrorsBySeverity map[string]int `json:"errorsBySeverity"`
	ErrorsByAgent    map[string]int `json:"errorsByAgent"`
	TopErrors        []StoredError  `json:"topErrors"`
}

// Resolution describes a resolve or unresolve action taken from the dashboard
type Resolution struct {
	Resolved   bool
	Notes      string
	ResolvedBy string
	ResolvedAt int64
}
