package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// RecordObserverStub -
type RecordObserverStub struct {
	OnRecordHandler     func(record common.ErrorRecord)
	OnResolutionHandler func(record common.ErrorRecord)
}

// OnRecord -
func (stub *RecordObserverStub) OnRecord(record common.ErrorRecord) {
	if stub.OnRecordHandler != nil {
		stub.OnRecordHandler(record)
	}
}

// OnResolution -
func (stub *RecordObserverStub) OnResolution(record common.ErrorRecord) {
	if stub.OnResolutionHandler != nil {
		stub.OnResolutionHandler(record)
	}
}

// IsInterfaceNil -
func (stub *RecordObserverStub) IsInterfaceNil() bool {
	return stub == nil
}
