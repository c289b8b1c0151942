package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// ThresholdHandlerStub -
type ThresholdHandlerStub struct {
	EvaluateThresholdHandler func(ruleID string, metricName string, message string) common.OpResult
}

// EvaluateThreshold -
func (stub *ThresholdHandlerStub) EvaluateThreshold(ruleID string, metricName string, message string) common.OpResult {
	if stub.EvaluateThresholdHandler != nil {
		return stub.EvaluateThresholdHandler(ruleID, metricName, message)
	}

	return common.Ok()
}

// IsInterfaceNil -
func (stub *ThresholdHandlerStub) IsInterfaceNil() bool {
	return stub == nil
}
