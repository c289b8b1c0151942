package testsCommon

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// ReporterStub -
type ReporterStub struct {
	ReportHandler func(ctx context.Context, batch common.Batch) error
}

// Report -
func (stub *ReporterStub) Report(ctx context.Context, batch common.Batch) error {
	if stub.ReportHandler != nil {
		return stub.ReportHandler(ctx, batch)
	}

	return nil
}

// IsInterfaceNil -
func (stub *ReporterStub) IsInterfaceNil() bool {
	return stub == nil
}
