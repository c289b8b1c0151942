package testsCommon

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
)

// ProberStub -
type ProberStub struct {
	ProbeAllHandler func(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult
}

// ProbeAll -
func (stub *ProberStub) ProbeAll(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult {
	if stub.ProbeAllHandler != nil {
		return stub.ProbeAllHandler(ctx, probes)
	}

	return make([]common.ProbeResult, 0)
}

// IsInterfaceNil -
func (stub *ProberStub) IsInterfaceNil() bool {
	return stub == nil
}
