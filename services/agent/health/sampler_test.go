package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type recordedError struct {
	info     common.ErrorInfo
	ctx      common.ErrorContext
	severity common.Severity
}

type memoryRecorder struct {
	clock   *fakeclock.FakeClock
	samples map[string][]common.MetricSample
	errors  []recordedError
}

func newMemoryRecorder(clk *fakeclock.FakeClock) (*memoryRecorder, *testsCommon.MetricRecorderStub) {
	mr := &memoryRecorder{
		clock:   clk,
		samples: make(map[string][]common.MetricSample),
		errors:  make([]recordedError, 0),
	}

	stub := &testsCommon.MetricRecorderStub{
		RecordSystemMetricHandler: func(sample common.MetricSample, area string) {
			if sample.Timestamp == 0 {
				sample.Timestamp = common.ToMillis(clk.Now())
			}
			mr.samples[area] = append(mr.samples[area], sample)
		},
		MetricsSinceHandler: func(category string, since int64) []common.MetricSample {
			result := make([]common.MetricSample, 0)
			for _, sample := range mr.samples[category] {
				if sample.Timestamp >= since {
					result = append(result, sample)
				}
			}
			return result
		},
		RecordErrorHandler: func(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
			mr.errors = append(mr.errors, recordedError{info: info, ctx: ctx, severity: severity})
			return common.ErrorRecord{}, true
		},
	}

	return mr, stub
}

func (mr *memoryRecorder) sample(area string, name string) (common.MetricSample, bool) {
	for _, sample := range mr.samples[area] {
		if sample.Name == name {
			return sample, true
		}
	}

	return common.MetricSample{}, false
}

func (mr *memoryRecorder) actions() []string {
	result := make([]string, 0, len(mr.errors))
	for _, recorded := range mr.errors {
		result = append(result, recorded.ctx.Action)
	}

	return result
}

func statsWithHeap(megabytes uint64) func() RuntimeStats {
	return func() RuntimeStats {
		return RuntimeStats{
			HeapAlloc:    megabytes * bytesInMegabyte,
			HeapSys:      2048 * bytesInMegabyte,
			NumGoroutine: 42,
			NumCPU:       8,
			LastGCPause:  2 * time.Millisecond,
		}
	}
}

func createMockArgs(clk *fakeclock.FakeClock, recorder MetricRecorder) ArgsHealthSampler {
	return ArgsHealthSampler{
		Clock:         clk,
		Recorder:      recorder,
		Errors:        &testsCommon.ErrorListerStub{},
		Prober:        &testsCommon.ProberStub{},
		Thresholds:    config.DefaultConfig().Thresholds,
		StatsProvider: statsWithHeap(512),
	}
}

func TestNewHealthSampler(t *testing.T) {
	t.Parallel()

	clk := fakeclock.NewFakeClock(testStart)

	t.Run("nil clock should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs(clk, &testsCommon.MetricRecorderStub{})
		args.Clock = nil
		hs, err := NewHealthSampler(args)
		assert.Nil(t, hs)
		assert.True(t, hs.IsInterfaceNil())
		assert.Equal(t, common.ErrNilClock, err)
	})
	t.Run("nil recorder should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs(clk, nil)
		hs, err := NewHealthSampler(args)
		assert.Nil(t, hs)
		assert.Equal(t, ErrNilMetricRecorder, err)
	})
	t.Run("nil error lister should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs(clk, &testsCommon.MetricRecorderStub{})
		args.Errors = nil
		hs, err := NewHealthSampler(args)
		assert.Nil(t, hs)
		assert.Equal(t, ErrNilErrorLister, err)
	})
	t.Run("nil prober should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs(clk, &testsCommon.MetricRecorderStub{})
		args.Prober = nil
		hs, err := NewHealthSampler(args)
		assert.Nil(t, hs)
		assert.Equal(t, ErrNilProber, err)
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs(clk, &testsCommon.MetricRecorderStub{})
		args.StatsProvider = nil
		hs, err := NewHealthSampler(args)
		assert.Nil(t, err)
		assert.False(t, hs.IsInterfaceNil())
		assert.NotNil(t, hs.statsProvider)
		assert.Equal(t, common.HealthUnknown, hs.LastReport().Status)
	})
}

func TestHealthSampler_SampleResources(t *testing.T) {
	t.Parallel()

	t.Run("runtime samples are tagged by area", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		mr, stub := newMemoryRecorder(clk)
		hs, _ := NewHealthSampler(createMockArgs(clk, stub))

		hs.Sample(context.Background())

		memory, found := mr.sample(AreaResources, "resource.memory")
		require.True(t, found)
		assert.Equal(t, float64(512*bytesInMegabyte), memory.Value)
		assert.Equal(t, common.UnitBytes, memory.Unit)

		usage, found := mr.sample(AreaResources, "resource.memory_usage")
		require.True(t, found)
		assert.Equal(t, 50.0, usage.Value)

		goroutines, found := mr.sample(AreaSystem, "system.goroutines")
		require.True(t, found)
		assert.Equal(t, 42.0, goroutines.Value)

		pause, found := mr.sample(AreaSystem, "system.gc_pause")
		require.True(t, found)
		assert.Equal(t, 2.0, pause.Value)

		assert.Empty(t, mr.samples[AreaExternal])
		assert.Empty(t, mr.errors)
	})
	t.Run("resource exhaustion records an error", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		mr, stub := newMemoryRecorder(clk)
		args := createMockArgs(clk, stub)
		args.StatsProvider = statsWithHeap(950)
		hs, _ := NewHealthSampler(args)

		hs.Sample(context.Background())

		require.Len(t, mr.errors, 1)
		assert.Equal(t, "Resource exhaustion: memory usage", mr.errors[0].info.Message)
		assert.Equal(t, infrastructureComponent, mr.errors[0].ctx.Component)
		assert.Equal(t, exhaustionAction, mr.errors[0].ctx.Action)
		assert.Equal(t, common.SeverityCritical, mr.errors[0].severity)

		report := hs.Evaluate()
		assert.Equal(t, common.HealthUnhealthy, report.Areas[AreaResources].Status)
		assert.Equal(t, common.HealthUnhealthy, report.Status)
	})
	t.Run("memory growth over the window records an error", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		mr, stub := newMemoryRecorder(clk)
		args := createMockArgs(clk, stub)
		heaps := []uint64{100, 120, 200}
		idx := 0
		args.StatsProvider = func() RuntimeStats {
			return statsWithHeap(heaps[idx])()
		}
		hs, _ := NewHealthSampler(args)

		for idx = 0; idx < len(heaps); idx++ {
			hs.Sample(context.Background())
			clk.Increment(time.Minute)
		}

		require.Len(t, mr.errors, 1)
		assert.Equal(t, memoryLeakAction, mr.errors[0].ctx.Action)
		assert.Equal(t, 100.0, mr.errors[0].ctx.Extra["growthPercentage"])
	})
	t.Run("points older than the growth window are dropped", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		mr, stub := newMemoryRecorder(clk)
		args := createMockArgs(clk, stub)
		heaps := []uint64{100, 120, 180, 200}
		idx := 0
		args.StatsProvider = func() RuntimeStats {
			return statsWithHeap(heaps[idx])()
		}
		hs, _ := NewHealthSampler(args)

		for idx = 0; idx < len(heaps); idx++ {
			hs.Sample(context.Background())
			clk.Increment(3 * time.Minute)
		}

		assert.Empty(t, mr.errors)
		assert.Len(t, hs.memoryHistory, 2)
	})
}

func TestHealthSampler_SampleExternal(t *testing.T) {
	t.Parallel()

	clk := fakeclock.NewFakeClock(testStart)
	mr, stub := newMemoryRecorder(clk)
	args := createMockArgs(clk, stub)
	args.Probes = []config.ProbeConfig{
		{Name: "billing", URL: "http://billing"},
		{Name: "maps", URL: "http://maps"},
		{Name: "contracts", URL: "http://contracts"},
	}
	args.Prober = &testsCommon.ProberStub{
		ProbeAllHandler: func(ctx context.Context, probes []config.ProbeConfig) []common.ProbeResult {
			require.Len(t, probes, 3)
			return []common.ProbeResult{
				{Name: "billing", URL: "http://billing", Available: true, StatusCode: 200, ResponseTime: 40 * time.Millisecond},
				{Name: "maps", URL: "http://maps", Available: false, Err: errors.New("connection refused")},
				{Name: "contracts", URL: "http://contracts", Available: true, StatusCode: 200, ResponseTime: 6 * time.Second},
			}
		},
	}
	hs, _ := NewHealthSampler(args)

	hs.Sample(context.Background())

	require.Len(t, mr.errors, 2)
	assert.Equal(t, "External service issue: maps unavailable", mr.errors[0].info.Message)
	assert.Equal(t, common.SeverityHigh, mr.errors[0].severity)
	assert.Equal(t, "connection refused", mr.errors[0].ctx.Extra["error"])
	assert.Equal(t, "External service issue: contracts slow", mr.errors[1].info.Message)
	assert.Equal(t, common.SeverityMedium, mr.errors[1].severity)
	assert.Equal(t, []string{probeAction, probeAction}, mr.actions())

	assert.Len(t, mr.samples[AreaExternal], 6)
	report := hs.Evaluate()
	external := report.Areas[AreaExternal]
	assert.Equal(t, common.HealthUnhealthy, external.Status)
	assert.Equal(t, 6, external.NumSamples)
	assert.Equal(t, 1, external.NumCritical)
	assert.Equal(t, 2, external.NumWarning)
}

func TestHealthSampler_PerformanceDegradation(t *testing.T) {
	t.Parallel()

	clk := fakeclock.NewFakeClock(testStart)
	mr, stub := newMemoryRecorder(clk)
	hs, _ := NewHealthSampler(createMockArgs(clk, stub))

	for i := 0; i < 4; i++ {
		stub.RecordSystemMetric(common.MetricSample{Name: apiResponseTimeMetric, Value: 3000}, apiCategory)
	}
	hs.Sample(context.Background())
	assert.Empty(t, mr.errors)

	stub.RecordSystemMetric(common.MetricSample{Name: apiResponseTimeMetric, Value: 3000}, apiCategory)
	hs.Sample(context.Background())
	require.Len(t, mr.errors, 1)
	assert.Equal(t, degradationAction, mr.errors[0].ctx.Action)
	assert.Equal(t, 5, mr.errors[0].ctx.Extra["sampleCount"])
}

func TestHealthSampler_Evaluate(t *testing.T) {
	t.Parallel()

	t.Run("no samples means unknown", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		_, stub := newMemoryRecorder(clk)
		hs, _ := NewHealthSampler(createMockArgs(clk, stub))

		report := hs.Evaluate()
		assert.Equal(t, common.HealthUnknown, report.Status)
		require.Len(t, report.Areas, 4)
		for _, area := range areas {
			assert.Equal(t, common.HealthUnknown, report.Areas[area].Status)
		}
		assert.Equal(t, common.ToMillis(testStart), report.Timestamp)
	})
	t.Run("database area verdicts", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		_, stub := newMemoryRecorder(clk)
		hs, _ := NewHealthSampler(createMockArgs(clk, stub))

		for i := 0; i < 5; i++ {
			stub.RecordSystemMetric(common.MetricSample{Name: "database.query_time", Value: 20}, AreaDatabase)
		}
		report := hs.Evaluate()
		assert.Equal(t, common.HealthHealthy, report.Areas[AreaDatabase].Status)
		assert.Equal(t, common.HealthHealthy, report.Status)

		stub.RecordSystemMetric(common.MetricSample{Name: "database.query_time", Value: 1500}, AreaDatabase)
		stub.RecordSystemMetric(common.MetricSample{Name: "database.query_time", Value: 1500}, AreaDatabase)
		report = hs.Evaluate()
		assert.Equal(t, common.HealthDegraded, report.Areas[AreaDatabase].Status)
		assert.Equal(t, common.HealthDegraded, report.Status)
		assert.Equal(t, common.HealthDegraded, hs.LastReport().Status)

		stub.RecordSystemMetric(common.MetricSample{Name: "database.query_time", Value: 6000}, AreaDatabase)
		report = hs.Evaluate()
		assert.Equal(t, common.HealthUnhealthy, report.Areas[AreaDatabase].Status)
		assert.Equal(t, 1, report.Areas[AreaDatabase].NumCritical)

		clk.Increment(10 * time.Minute)
		report = hs.Evaluate()
		assert.Equal(t, common.HealthUnknown, report.Areas[AreaDatabase].Status)
	})
	t.Run("samples without limits do not dilute the degraded fraction", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		_, stub := newMemoryRecorder(clk)
		args := createMockArgs(clk, stub)
		args.Thresholds.DegradedFraction = 0.5
		args.StatsProvider = func() RuntimeStats {
			stats := statsWithHeap(512)()
			stats.NumGoroutine = 5000
			return stats
		}
		hs, _ := NewHealthSampler(args)

		for i := 0; i < 5; i++ {
			hs.Sample(context.Background())
		}

		report := hs.Evaluate()
		system := report.Areas[AreaSystem]
		assert.Equal(t, common.HealthDegraded, system.Status)
		assert.Equal(t, 15, system.NumSamples)
		assert.Equal(t, 5, system.NumRated)
		assert.Equal(t, 5, system.NumWarning)
		assert.Equal(t, 0, system.NumCritical)
	})
	t.Run("an area with only unrated samples is healthy", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		_, stub := newMemoryRecorder(clk)
		hs, _ := NewHealthSampler(createMockArgs(clk, stub))

		stub.RecordSystemMetric(common.MetricSample{Name: "system.cpu_cores", Value: 8}, AreaSystem)
		report := hs.Evaluate()
		assert.Equal(t, common.HealthHealthy, report.Areas[AreaSystem].Status)
		assert.Equal(t, 0, report.Areas[AreaSystem].NumRated)
	})
	t.Run("error ceiling makes the area unhealthy", func(t *testing.T) {
		t.Parallel()

		clk := fakeclock.NewFakeClock(testStart)
		_, stub := newMemoryRecorder(clk)
		args := createMockArgs(clk, stub)
		var receivedFilter common.ErrorFilter
		numErrors := 9
		args.Errors = &testsCommon.ErrorListerStub{
			ErrorsHandler: func(filter common.ErrorFilter) []common.ErrorRecord {
				receivedFilter = filter
				records := make([]common.ErrorRecord, 0, numErrors)
				for i := 0; i < numErrors; i++ {
					records = append(records, common.ErrorRecord{Context: common.ErrorContext{Component: "database"}})
				}
				return records
			},
		}
		hs, _ := NewHealthSampler(args)

		report := hs.Evaluate()
		assert.Equal(t, common.HealthUnknown, report.Areas[AreaDatabase].Status)
		assert.Equal(t, 9, report.Areas[AreaDatabase].NumErrors)
		require.NotNil(t, receivedFilter.Resolved)
		assert.False(t, *receivedFilter.Resolved)
		assert.Equal(t, int64(300000), receivedFilter.TimeRangeInMilliseconds)

		numErrors = 10
		report = hs.Evaluate()
		assert.Equal(t, common.HealthUnhealthy, report.Areas[AreaDatabase].Status)
		assert.Equal(t, common.HealthUnhealthy, report.Status)
	})
}

func TestAreaOf(t *testing.T) {
	t.Parallel()

	record := func(component string, action string) common.ErrorRecord {
		return common.ErrorRecord{Context: common.ErrorContext{Component: component, Action: action}}
	}

	assert.Equal(t, AreaDatabase, areaOf(record("database", "slow_query")))
	assert.Equal(t, AreaExternal, areaOf(record(infrastructureComponent, probeAction)))
	assert.Equal(t, AreaResources, areaOf(record(infrastructureComponent, memoryLeakAction)))
	assert.Equal(t, AreaResources, areaOf(record(infrastructureComponent, exhaustionAction)))
	assert.Equal(t, AreaSystem, areaOf(record(infrastructureComponent, degradationAction)))
	assert.Equal(t, AreaSystem, areaOf(record("api", "http_error")))
}

func TestOverallStatus(t *testing.T) {
	t.Parallel()

	statuses := func(values ...common.HealthStatus) map[string]common.AreaHealth {
		result := make(map[string]common.AreaHealth)
		for idx, value := range values {
			result[areas[idx]] = common.AreaHealth{Status: value}
		}
		return result
	}

	assert.Equal(t, common.HealthUnknown, overallStatus(statuses(common.HealthUnknown, common.HealthUnknown)))
	assert.Equal(t, common.HealthHealthy, overallStatus(statuses(common.HealthHealthy, common.HealthUnknown)))
	assert.Equal(t, common.HealthDegraded, overallStatus(statuses(common.HealthHealthy, common.HealthDegraded)))
	assert.Equal(t, common.HealthUnhealthy, overallStatus(statuses(common.HealthDegraded, common.HealthUnhealthy, common.HealthHealthy)))
}
