package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	metricsPath = "/api/metrics"
	errorsPath  = "/api/errors"
	alertsPath  = "/api/alerts"
)

var log = logger.GetOrCreate("agent/reporter")

type httpReporter struct {
	endpoint string
	apiKey   string
	agentID  string
	client   *http.Client
}

// NewHTTPReporter creates a new reporter that pushes batches to the configured ReportEndpoint
func NewHTTPReporter(endpoint, apiKey, agentID string, timeout time.Duration) *httpReporter {
	return &httpReporter{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		agentID:  agentID,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Report splits the batch per entity kind and posts every non-empty part.
// A failed part does not stop the remaining ones; all errors are returned joined.
func (r *httpReporter) Report(ctx context.Context, batch common.Batch) error {
	var errs []error

	if len(batch.Samples) > 0 {
		errs = append(errs, r.post(ctx, metricsPath, common.Batch{Agent: r.agentID, Samples: batch.Samples}, len(batch.Samples)))
	}
	if len(batch.Errors) > 0 {
		errs = append(errs, r.post(ctx, errorsPath, common.Batch{Agent: r.agentID, Errors: batch.Errors}, len(batch.Errors)))
	}
	if len(batch.Alerts) > 0 {
		errs = append(errs, r.post(ctx, alertsPath, common.Batch{Agent: r.agentID, Alerts: batch.Alerts}, len(batch.Alerts)))
	}

	return errors.Join(errs...)
}

func (r *httpReporter) post(ctx context.Context, path string, payload common.Batch, numEntities int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report payload for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create report request for %s: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error sending report to %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server rejected report to %s with status code: %d", path, resp.StatusCode)
	}

	log.Debug("successfully sent report", "endpoint", r.endpoint+path, "count", numEntities)

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *httpReporter) IsInterfaceNil() bool {
	return r == nil
}
