package testsCommon

import (
	"context"
	"sync/atomic"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// ChannelStub -
type ChannelStub struct {
	NameValue   string
	SendHandler func(ctx context.Context, alert common.AlertEvent) error

	numCalls int64
}

// Name -
func (stub *ChannelStub) Name() string {
	return stub.NameValue
}

// Send -
func (stub *ChannelStub) Send(ctx context.Context, alert common.AlertEvent) error {
	atomic.AddInt64(&stub.numCalls, 1)
	if stub.SendHandler != nil {
		return stub.SendHandler(ctx, alert)
	}

	return nil
}

// NumCalls -
func (stub *ChannelStub) NumCalls() int {
	return int(atomic.LoadInt64(&stub.numCalls))
}

// IsInterfaceNil -
func (stub *ChannelStub) IsInterfaceNil() bool {
	return stub == nil
}
