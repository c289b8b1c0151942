package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// SampleObserverStub -
type SampleObserverStub struct {
	OnSampleHandler func(sample common.MetricSample)
}

// OnSample -
func (stub *SampleObserverStub) OnSample(sample common.MetricSample) {
	if stub.OnSampleHandler != nil {
		stub.OnSampleHandler(sample)
	}
}

// IsInterfaceNil -
func (stub *SampleObserverStub) IsInterfaceNil() bool {
	return stub == nil
}
