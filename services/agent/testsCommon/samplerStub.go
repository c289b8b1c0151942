package testsCommon

// SamplerStub -
type SamplerStub struct {
	ShouldSampleHandler func() bool
}

// ShouldSample -
func (stub *SamplerStub) ShouldSample() bool {
	if stub.ShouldSampleHandler != nil {
		return stub.ShouldSampleHandler()
	}

	return true
}

// IsInterfaceNil -
func (stub *SamplerStub) IsInterfaceNil() bool {
	return stub == nil
}
