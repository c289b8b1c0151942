package testsCommon

import (
	"sync"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// AlertSinkStub -
type AlertSinkStub struct {
	EnqueueHandler func(alert common.AlertEvent)

	mut    sync.Mutex
	alerts []common.AlertEvent
}

// Enqueue -
func (stub *AlertSinkStub) Enqueue(alert common.AlertEvent) {
	stub.mut.Lock()
	stub.alerts = append(stub.alerts, alert)
	stub.mut.Unlock()

	if stub.EnqueueHandler != nil {
		stub.EnqueueHandler(alert)
	}
}

// Alerts -
func (stub *AlertSinkStub) Alerts() []common.AlertEvent {
	stub.mut.Lock()
	defer stub.mut.Unlock()

	return append([]common.AlertEvent(nil), stub.alerts...)
}

// IsInterfaceNil -
func (stub *AlertSinkStub) IsInterfaceNil() bool {
	return stub == nil
}
