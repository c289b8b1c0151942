package common

// Unit is the measurement unit of a metric sample
type Unit string

const (
	UnitMilliseconds Unit = "milliseconds"
	UnitBytes        Unit = "bytes"
	UnitCount        Unit = "count"
	UnitPercentage   Unit = "percentage"
	UnitCustom       Unit = "custom"
)

// MetricSample is a single performance observation
type MetricSample struct {
	Name      string                 `json:"name"`
	Value     float64                `json:"value"`
	Unit      Unit                   `json:"unit"`
	Timestamp int64                  `json:"timestamp"`
	Tags      map[string]string      `json:"tags,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// InteractionType is the kind of user interaction
type InteractionType string

const (
	InteractionClick      InteractionType = "click"
	InteractionView       InteractionType = "view"
	InteractionFormSubmit InteractionType = "form_submit"
	InteractionNavigation InteractionType = "navigation"
	InteractionError      InteractionType = "error"
)

// InteractionEvent is a user-interaction event
type InteractionEvent struct {
	Type       InteractionType        `json:"type"`
	Target     string                 `json:"target"`
	Timestamp  int64                  `json:"timestamp"`
	UserID     string                 `json:"userId,omitempty"`
	SessionID  string                 `json:"sessionId,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// BusinessCategory groups business metrics
type BusinessCategory string

const (
	CategoryFleet       BusinessCategory = "fleet"
	CategoryFinancial   BusinessCategory = "financial"
	CategoryUser        BusinessCategory = "user"
	CategoryOperational BusinessCategory = "operational"
)

// BusinessMetric is an always-recorded business figure
type BusinessMetric struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Category   BusinessCategory  `json:"category"`
	Timestamp  int64             `json:"timestamp"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// ErrorType is the error category
type ErrorType string

const (
	ErrorTypeJavascript ErrorType = "javascript"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypePromise    ErrorType = "promise"
	ErrorTypeReact      ErrorType = "react"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeBusiness   ErrorType = "business"
)

// Severity is the urgency of an error or alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorContext carries where and for whom an error happened
type ErrorContext struct {
	Component       string                 `json:"component,omitempty"`
	Action          string                 `json:"action,omitempty"`
	URL             string                 `json:"url,omitempty"`
	UserID          string                 `json:"userId,omitempty"`
	SessionID       string                 `json:"sessionId,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
	ResolutionNotes string                 `json:"resolutionNotes,omitempty"`
	ResolvedAt      int64                  `json:"resolvedAt,omitempty"`
	ResolvedBy      string                 `json:"resolvedBy,omitempty"`
}

// ErrorRecord is a deduplicated error occurrence group. ID and Fingerprint always hold the same value.
type ErrorRecord struct {
	ID          string            `json:"id"`
	Message     string            `json:"message"`
	Stack       string            `json:"stack,omitempty"`
	Name        string            `json:"name"`
	Type        ErrorType         `json:"type"`
	Severity    Severity          `json:"severity"`
	Context     ErrorContext      `json:"context"`
	Occurrences int               `json:"occurrences"`
	FirstSeen   int64             `json:"firstSeen"`
	LastSeen    int64             `json:"lastSeen"`
	Resolved    bool              `json:"resolved"`
	Tags        map[string]string `json:"tags,omitempty"`
	Fingerprint string            `json:"fingerprint"`
}

// NotificationAttempt is the outcome of one delivery attempt on one channel
type NotificationAttempt struct {
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// AlertEvent is a rule match awaiting or having undergone notification
type AlertEvent struct {
	ID            string                `json:"id"`
	ErrorID       string                `json:"errorId,omitempty"`
	RuleID        string                `json:"ruleId"`
	MetricName    string                `json:"metricName,omitempty"`
	Severity      Severity              `json:"severity"`
	Message       string                `json:"message"`
	Timestamp     int64                 `json:"timestamp"`
	Notified      bool                  `json:"notified"`
	Channels      []string              `json:"channels,omitempty"`
	Notifications []NotificationAttempt `json:"notifications"`
}

// ConditionKind discriminates rule predicates
type ConditionKind string

const (
	// ConditionSeverity matches when the record severity equals Severity
	ConditionSeverity ConditionKind = "severity"
	// ConditionOccurrences matches when the record occurrences are strictly above Occurrences
	ConditionOccurrences ConditionKind = "occurrences"
	// ConditionTypeOccurrences matches when the record type is Type and occurrences are strictly above Occurrences
	ConditionTypeOccurrences ConditionKind = "type_occurrences"
	// ConditionCategory matches when the record type is Type
	ConditionCategory ConditionKind = "category"
	// ConditionThreshold never matches records, it is fired by static metric thresholds
	ConditionThreshold ConditionKind = "threshold"
)

// RuleCondition is a discriminated rule predicate
type RuleCondition struct {
	Kind        ConditionKind `json:"kind" toml:"Kind" yaml:"kind"`
	Severity    Severity      `json:"severity,omitempty" toml:"Severity" yaml:"severity,omitempty"`
	Type        ErrorType     `json:"type,omitempty" toml:"Type" yaml:"type,omitempty"`
	Occurrences int           `json:"occurrences,omitempty" toml:"Occurrences" yaml:"occurrences,omitempty"`
}

// ErrorRule is a static matching rule. Cooldown and Window are expressed in milliseconds.
type ErrorRule struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Condition            RuleCondition `json:"condition"`
	Severity             Severity      `json:"severity"`
	Enabled              bool          `json:"enabled"`
	NotificationChannels []string      `json:"notificationChannels"`
	Cooldown             int64         `json:"cooldown"`
	Threshold            int           `json:"threshold"`
	Window               int64         `json:"window"`
}

// TraceSpan is an ad-hoc timing span for a named operation. StartTime is a monotonic reading in nanoseconds.
type TraceSpan struct {
	TraceID   string            `json:"traceId"`
	SpanID    string            `json:"spanId"`
	Operation string            `json:"operation"`
	StartTime int64             `json:"startTime"`
	StartedAt int64             `json:"startedAt"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// HealthStatus is a coarse health verdict
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// AreaHealth is the verdict of a single monitored area
type AreaHealth struct {
	Area        string       `json:"area"`
	Status      HealthStatus `json:"status"`
	NumSamples  int          `json:"numSamples"`
	NumRated    int          `json:"numRated"`
	NumWarning  int          `json:"numWarning"`
	NumCritical int          `json:"numCritical"`
	NumErrors   int          `json:"numErrors"`
}

// HealthReport aggregates all area verdicts
type HealthReport struct {
	Status    HealthStatus          `json:"status"`
	Areas     map[string]AreaHealth `json:"areas"`
	Timestamp int64                 `json:"timestamp"`
}

// ErrorFilter selects error records
type ErrorFilter struct {
	Type      ErrorType
	Severity  Severity
	Resolved  *bool
	Component string
	// TimeRangeInMilliseconds keeps records whose LastSeen is within the range, when positive
	TimeRangeInMilliseconds int64
}

// ErrorSummary aggregates recent error records
type ErrorSummary struct {
	TotalErrors       int            `json:"totalErrors"`
	UniqueErrors      int            `json:"uniqueErrors"`
	ResolvedErrors    int            `json:"resolvedErrors"`
	CriticalErrors    int            `json:"criticalErrors"`
	ErrorsByType      map[string]int `json:"errorsByType"`
	ErrorsByComponent map[string]int `json:"errorsByComponent"`
	TopErrors         []ErrorRecord  `json:"topErrors"`
}

// ErrorTrendPoint is one hourly bucket of the error trend
type ErrorTrendPoint struct {
	Timestamp     int64 `json:"timestamp"`
	ErrorCount    int   `json:"errorCount"`
	CriticalCount int   `json:"criticalCount"`
	ResolvedCount int   `json:"resolvedCount"`
}

// Batch is the set of entities pushed to the ingestion service in one report
type Batch struct {
	Agent   string         `json:"agent"`
	Samples []MetricSample `json:"samples,omitempty"`
	Errors  []ErrorRecord  `json:"errors,omitempty"`
	Alerts  []AlertEvent   `json:"alerts,omitempty"`
}

// IsEmpty returns true if the batch carries nothing
func (b *Batch) IsEmpty() bool {
	return len(b.Samples) == 0 && len(b.Errors) == 0 && len(b.Alerts) == 0
}
