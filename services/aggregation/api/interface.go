package api

import (
	"context"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// Storage defines the interface for persisting and querying the reported telemetry
type Storage interface {
	// SaveSamples stores the samples of an agent, returning the number of newly stored values
	SaveSamples(ctx context.Context, agent string, samples []agentCommon.MetricSample) (int, error)

	// SaveErrors upserts the error records of an agent, returning the number of changed records
	SaveErrors(ctx context.Context, agent string, records []agentCommon.ErrorRecord) (int, error)

	// SaveAlerts stores the alerts of an agent, returning the newly stored ones
	SaveAlerts(ctx context.Context, agent string, alerts []agentCommon.AlertEvent) ([]common.StoredAlert, error)

	// GetLatestMetrics returns the single latest recorded value for every known metric
	GetLatestMetrics(ctx context.Context) ([]common.MetricHistory, error)

	// GetMetricHistory returns the definition and all retained values for a specific metric
	GetMetricHistory(ctx context.Context, name string) (*common.MetricHistory, error)

	// DeleteMetric removes a metric definition and all associated values
	DeleteMetric(ctx context.Context, name string) error

	// UpdateMetricOrder updates the display order of a specific metric
	UpdateMetricOrder(ctx context.Context, name string, order int) error

	// UpdatePanelOrder updates the display order of a specific panel (agent)
	UpdatePanelOrder(ctx context.Context, name string, order int) error

	// GetPanelsConfigs returns the display configurations for all panels
	GetPanelsConfigs(ctx context.Context) (map[string]int, error)

	// GetErrors returns the stored error records matching the query
	GetErrors(ctx context.Context, query common.ErrorQuery) ([]common.StoredError, error)

	// GetErrorSummary aggregates the error records seen since the provided timestamp
	GetErrorSummary(ctx context.Context, since int64) (*common.ErrorSummary, error)

	// SetResolution resolves or reopens the error records with the provided id
	SetResolution(ctx context.Context, id string, resolution common.Resolution) (bool, error)

	// GetAlerts returns the stored alerts matching the query
	GetAlerts(ctx context.Context, query common.AlertQuery) ([]common.StoredAlert, error)

	// Close shuts down the database connection
	Close() error

	IsInterfaceNil() bool
}

// Monitor records the service own API activity
type Monitor interface {
	TrackError(info agentCommon.ErrorInfo, ctx agentCommon.ErrorContext, errType agentCommon.ErrorType, severity agentCommon.Severity) (agentCommon.ErrorRecord, bool)
	TrackAPIPerformance(endpoint string, method string, statusCode int, duration time.Duration)
	HealthReport() agentCommon.HealthReport
	IsInterfaceNil() bool
}

// Subscriber is a live alert stream client
type Subscriber interface {
	Send(payload []byte) error
	Close()
}
