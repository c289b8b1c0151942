package testsCommon

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// StoreStub -
type StoreStub struct {
	SaveSamplesHandler       func(ctx context.Context, agent string, samples []agentCommon.MetricSample) (int, error)
	SaveErrorsHandler        func(ctx context.Context, agent string, records []agentCommon.ErrorRecord) (int, error)
	SaveAlertsHandler        func(ctx context.Context, agent string, alerts []agentCommon.AlertEvent) ([]common.StoredAlert, error)
	GetLatestMetricsHandler  func(ctx context.Context) ([]common.MetricHistory, error)
	GetMetricHistoryHandler  func(ctx context.Context, name string) (*common.MetricHistory, error)
	DeleteMetricHandler      func(ctx context.Context, name string) error
	UpdateMetricOrderHandler func(ctx context.Context, name string, order int) error
	UpdatePanelOrderHandler  func(ctx context.Context, name string, order int) error
	GetPanelsConfigsHandler  func(ctx context.Context) (map[string]int, error)
	GetErrorsHandler         func(ctx context.Context, query common.ErrorQuery) ([]common.StoredError, error)
	GetErrorSummaryHandler   func(ctx context.Context, since int64) (*common.ErrorSummary, error)
	SetResolutionHandler     func(ctx context.Context, id string, resolution common.Resolution) (bool, error)
	GetAlertsHandler         func(ctx context.Context, query common.AlertQuery) ([]common.StoredAlert, error)
	CloseHandler             func() error
}

// SaveSamples -
func (stub *StoreStub) SaveSamples(ctx context.Context, agent string, samples []agentCommon.MetricSample) (int, error) {
	if stub.SaveSamplesHandler != nil {
		return stub.SaveSamplesHandler(ctx, agent, samples)
	}

	return len(samples), nil
}

// SaveErrors -
func (stub *StoreStub) SaveErrors(ctx context.Context, agent string, records []agentCommon.ErrorRecord) (int, error) {
	if stub.SaveErrorsHandler != nil {
		return stub.SaveErrorsHandler(ctx, agent, records)
	}

	return len(records), nil
}

// SaveAlerts -
func (stub *StoreStub) SaveAlerts(ctx context.Context, agent string, alerts []agentCommon.AlertEvent) ([]common.StoredAlert, error) {
	if stub.SaveAlertsHandler != nil {
		return stub.SaveAlertsHandler(ctx, agent, alerts)
	}

	return make([]common.StoredAlert, 0), nil
}

// GetLatestMetrics -
func (stub *StoreStub) GetLatestMetrics(ctx context.Context) ([]common.MetricHistory, error) {
	if stub.GetLatestMetricsHandler != nil {
		return stub.GetLatestMetricsHandler(ctx)
	}

	return make([]common.MetricHistory, 0), nil
}

// GetMetricHistory -
func (stub *StoreStub) GetMetricHistory(ctx context.Context, name string) (*common.MetricHistory, error) {
	if stub.GetMetricHistoryHandler != nil {
		return stub.GetMetricHistoryHandler(ctx, name)
	}

	return &common.MetricHistory{}, nil
}

// DeleteMetric -
func (stub *StoreStub) DeleteMetric(ctx context.Context, name string) error {
	if stub.DeleteMetricHandler != nil {
		return stub.DeleteMetricHandler(ctx, name)
	}

	return nil
}

// UpdateMetricOrder -
func (stub *StoreStub) UpdateMetricOrder(ctx context.Context, name string, order int) error {
	if stub.UpdateMetricOrderHandler != nil {
		return stub.UpdateMetricOrderHandler(ctx, name, order)
	}

	return nil
}

// UpdatePanelOrder -
func (stub *StoreStub) UpdatePanelOrder(ctx context.Context, name string, order int) error {
	if stub.UpdatePanelOrderHandler != nil {
		return stub.UpdatePanelOrderHandler(ctx, name, order)
	}

	return nil
}

// GetPanelsConfigs -
func (stub *StoreStub) GetPanelsConfigs(ctx context.Context) (map[string]int, error) {
	if stub.GetPanelsConfigsHandler != nil {
		return stub.GetPanelsConfigsHandler(ctx)
	}

	return make(map[string]int), nil
}

// GetErrors -
func (stub *StoreStub) GetErrors(ctx context.Context, query common.ErrorQuery) ([]common.StoredError, error) {
	if stub.GetErrorsHandler != nil {
		return stub.GetErrorsHandler(ctx, query)
	}

	return make([]common.StoredError, 0), nil
}

// GetErrorSummary -
func (stub *StoreStub) GetErrorSummary(ctx context.Context, since int64) (*common.ErrorSummary, error) {
	if stub.GetErrorSummaryHandler != nil {
		return stub.GetErrorSummaryHandler(ctx, since)
	}

	return &common.ErrorSummary{}, nil
}

// SetResolution -
func (stub *StoreStub) SetResolution(ctx context.Context, id string, resolution common.Resolution) (bool, error) {
	if stub.SetResolutionHandler != nil {
		return stub.SetResolutionHandler(ctx, id, resolution)
	}

	return true, nil
}

// GetAlerts -
func (stub *StoreStub) GetAlerts(ctx context.Context, query common.AlertQuery) ([]common.StoredAlert, error) {
	if stub.GetAlertsHandler != nil {
		return stub.GetAlertsHandler(ctx, query)
	}

	return make([]common.StoredAlert, 0), nil
}

// Close -
func (stub *StoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *StoreStub) IsInterfaceNil() bool {
	return stub == nil
}
