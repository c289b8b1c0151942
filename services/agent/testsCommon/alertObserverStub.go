package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// AlertObserverStub -
type AlertObserverStub struct {
	OnAlertNotifiedHandler func(alert common.AlertEvent)
}

// OnAlertNotified -
func (stub *AlertObserverStub) OnAlertNotified(alert common.AlertEvent) {
	if stub.OnAlertNotifiedHandler != nil {
		stub.OnAlertNotifiedHandler(alert)
	}
}

// IsInterfaceNil -
func (stub *AlertObserverStub) IsInterfaceNil() bool {
	return stub == nil
}
