package collector

import (
	"math/rand"
	"sync"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

type randomSampler struct {
	rate float64

	mut    sync.Mutex
	random *rand.Rand
}

// NewRandomSampler creates a sampler keeping each record with the provided probability
func NewRandomSampler(rate float64) (*randomSampler, error) {
	if rate < 0 || rate > 1 {
		return nil, common.ErrInvalidSampleRate
	}

	return &randomSampler{
		rate:   rate,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// ShouldSample draws a uniform value against the sample rate
func (rs *randomSampler) ShouldSample() bool {
	rs.mut.Lock()
	defer rs.mut.Unlock()

	return rs.random.Float64() < rs.rate
}

// IsInterfaceNil returns true if the value under the interface is nil
func (rs *randomSampler) IsInterfaceNil() bool {
	return rs == nil
}
