package testsCommon

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// ErrorListerStub -
type ErrorListerStub struct {
	ErrorsHandler func(filter common.ErrorFilter) []common.ErrorRecord
}

// Errors -
func (stub *ErrorListerStub) Errors(filter common.ErrorFilter) []common.ErrorRecord {
	if stub.ErrorsHandler != nil {
		return stub.ErrorsHandler(filter)
	}

	return make([]common.ErrorRecord, 0)
}

// IsInterfaceNil -
func (stub *ErrorListerStub) IsInterfaceNil() bool {
	return stub == nil
}
