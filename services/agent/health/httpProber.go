package health

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/tidwall/gjson"
)

type httpProber struct {
	client *http.Client
	clock  clock.Clock
}

// NewHTTPProber creates a new HTTP-based prober with a default timeout
func NewHTTPProber(timeout time.Duration, clk clock.Clock) (*httpProber, error) {
	if clk == nil {
		return nil, common.ErrNilClock
	}

	return &httpProber{
		client: &http.Client{
			Timeout: timeout,
		},
		clock: clk,
	}, nil
}

// ProbeAll performs concurrent HTTP GETs to all configured services. The results keep the probes order.
func (p *httpProber) ProbeAll(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult {
	results := make([]common.ProbeResult, len(probes))
	var wg sync.WaitGroup

	wg.Add(len(probes))
	for idx, probe := range probes {
		go func(index int, cfg config.ProbeConfig) {
			defer wg.Done()

			results[index] = p.probe(ctx, cfg)
			if results[index].Err != nil {
				log.Warn("service probe failed", "name", cfg.Name, "url", cfg.URL, "error", results[index].Err)
			}
		}(idx, probe)
	}

	wg.Wait()
	return results
}

func (p *httpProber) probe(ctx context.Context, cfg config.ProbeConfig) (result common.ProbeResult) {
	result = common.ProbeResult{
		Name: cfg.Name,
		URL:  cfg.URL,
	}

	if cfg.TimeoutInSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutInSeconds)*time.Second)
		defer cancel()
	}

	start := p.clock.Now()
	defer func() {
		result.ResponseTime = p.clock.Since(start)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		result.Err = err
		return result
	}

	resp, err := p.client.Do(req)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Err = errStatusNotOK(resp.StatusCode)
		return result
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result
	}

	if len(cfg.Value) > 0 {
		// gjson path, e.g. "data.status.db"
		value := gjson.GetBytes(body, cfg.Value)
		if !value.Exists() {
			result.Err = errPathNotFound(cfg.Value)
			return result
		}
		result.Value = value.String()
	}

	result.Available = true

	return result
}

// IsInterfaceNil returns true if the value under the interface is nil
func (p *httpProber) IsInterfaceNil() bool {
	return p == nil
}
