package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

// Monitored areas
const (
	AreaSystem    = "system"
	AreaDatabase  = "database"
	AreaExternal  = "external"
	AreaResources = "resources"
)

const (
	infrastructureComponent = "infrastructure"
	databaseComponent       = "database"
	probeAction             = "probe_monitoring"
	memoryLeakAction        = "memory_leak_detection"
	exhaustionAction        = "resource_monitoring"
	degradationAction       = "performance_monitoring"
	apiCategory             = "api"
	apiResponseTimeMetric   = "api.response_time"
	minGrowthPoints         = 3
	minDegradationSamples   = 5
	bytesInMegabyte         = 1024 * 1024
)

var log = logger.GetOrCreate("agent/health")

var areas = []string{AreaSystem, AreaDatabase, AreaExternal, AreaResources}

// ArgsHealthSampler is the DTO used to create a new health sampler
type ArgsHealthSampler struct {
	Clock         clock.Clock
	Recorder      MetricRecorder
	Errors        ErrorLister
	Prober        Prober
	Probes        []config.ProbeConfig
	Thresholds    config.ThresholdsConfig
	StatsProvider func() RuntimeStats
}

type limit struct {
	warning      float64
	critical     float64
	lowerIsWorse bool
}

func (l limit) levels(value float64) (bool, bool) {
	if l.lowerIsWorse {
		return value < l.warning, value < l.critical
	}

	return value > l.warning, value > l.critical
}

type memoryPoint struct {
	at   time.Time
	heap uint64
}

type healthSampler struct {
	clock         clock.Clock
	recorder      MetricRecorder
	errors        ErrorLister
	prober        Prober
	probes        []config.ProbeConfig
	thresholds    config.ThresholdsConfig
	statsProvider func() RuntimeStats
	limits        map[string]limit
	window        time.Duration
	growthWindow  time.Duration

	mut           sync.RWMutex
	memoryHistory []memoryPoint
	lastReport    common.HealthReport
}

// NewHealthSampler creates the component sampling the process resources and the external services
func NewHealthSampler(args ArgsHealthSampler) (*healthSampler, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}
	if check.IfNil(args.Recorder) {
		return nil, ErrNilMetricRecorder
	}
	if check.IfNil(args.Errors) {
		return nil, ErrNilErrorLister
	}
	if check.IfNil(args.Prober) {
		return nil, ErrNilProber
	}

	statsProvider := args.StatsProvider
	if statsProvider == nil {
		statsProvider = ReadRuntimeStats
	}

	thresholds := args.Thresholds
	return &healthSampler{
		clock:         args.Clock,
		recorder:      args.Recorder,
		errors:        args.Errors,
		prober:        args.Prober,
		probes:        args.Probes,
		thresholds:    thresholds,
		statsProvider: statsProvider,
		limits: map[string]limit{
			"resource.memory_usage": {
				warning:  thresholds.MemoryWarningPercentage,
				critical: thresholds.MemoryCriticalPercentage,
			},
			"system.goroutines": {
				warning:  thresholds.GoroutinesWarning,
				critical: thresholds.GoroutinesCritical,
			},
			"database.query_time": {
				warning:  thresholds.DatabaseSlowInMilliseconds,
				critical: thresholds.DatabaseCriticalInMilliseconds,
			},
			"external.response_time": {
				warning:  thresholds.ProbeSlowInMilliseconds,
				critical: thresholds.ProbeCriticalInMilliseconds,
			},
			"external.availability": {
				warning:      1,
				critical:     1,
				lowerIsWorse: true,
			},
		},
		window:        time.Duration(thresholds.HealthWindowInSeconds) * time.Second,
		growthWindow:  time.Duration(thresholds.MemoryGrowthWindowInSeconds) * time.Second,
		memoryHistory: make([]memoryPoint, 0),
		lastReport: common.HealthReport{
			Status: common.HealthUnknown,
			Areas:  make(map[string]common.AreaHealth),
		},
	}, nil
}

// Sample records the runtime resources and the probe outcomes, then runs the anomaly checks
func (hs *healthSampler) Sample(ctx context.Context) {
	stats := hs.statsProvider()
	hs.sampleResources(stats)
	hs.sampleSystem(stats)
	hs.sampleExternal(ctx)

	hs.checkMemoryGrowth(stats)
	hs.checkPerformanceDegradation()
}

func (hs *healthSampler) record(name string, value float64, unit common.Unit, area string, tags map[string]string) {
	hs.recorder.RecordSystemMetric(common.MetricSample{
		Name:  name,
		Value: value,
		Unit:  unit,
		Tags:  tags,
	}, area)
}

func (hs *healthSampler) sampleResources(stats RuntimeStats) {
	hs.record("resource.memory", float64(stats.HeapAlloc), common.UnitBytes, AreaResources, map[string]string{"type": "memory"})

	limitBytes := hs.thresholds.MemoryLimitInMegabytes * bytesInMegabyte
	if limitBytes == 0 {
		return
	}

	usage := float64(stats.HeapAlloc) / float64(limitBytes) * 100
	hs.record("resource.memory_usage", usage, common.UnitPercentage, AreaResources, map[string]string{"type": "memory"})

	if hs.thresholds.MemoryCriticalPercentage > 0 && usage > hs.thresholds.MemoryCriticalPercentage {
		hs.recordAnomaly("Resource exhaustion: memory usage", exhaustionAction, common.SeverityCritical, map[string]interface{}{
			"usagePercentage": usage,
			"usedMemory":      stats.HeapAlloc,
			"totalMemory":     limitBytes,
		})
	}
}

func (hs *healthSampler) sampleSystem(stats RuntimeStats) {
	hs.record("system.goroutines", float64(stats.NumGoroutine), common.UnitCount, AreaSystem, nil)
	hs.record("system.cpu_cores", float64(stats.NumCPU), common.UnitCount, AreaSystem, nil)
	hs.record("system.gc_pause", float64(stats.LastGCPause)/float64(time.Millisecond), common.UnitMilliseconds, AreaSystem, nil)
}

func (hs *healthSampler) sampleExternal(ctx context.Context) {
	if len(hs.probes) == 0 {
		return
	}

	results := hs.prober.ProbeAll(ctx, hs.probes)
	for _, result := range results {
		tags := map[string]string{
			"service": result.Name,
		}
		ms := float64(result.ResponseTime) / float64(time.Millisecond)
		availability := 0.0
		if result.Available {
			availability = 1
		}

		hs.record("external.response_time", ms, common.UnitMilliseconds, AreaExternal, tags)
		hs.record("external.availability", availability, common.UnitCount, AreaExternal, tags)

		slow := hs.thresholds.ProbeSlowInMilliseconds > 0 && ms > hs.thresholds.ProbeSlowInMilliseconds
		if result.Available && !slow {
			continue
		}

		state := "slow"
		severity := common.SeverityMedium
		if !result.Available {
			state = "unavailable"
			severity = common.SeverityHigh
		}

		extra := map[string]interface{}{
			"service":      result.Name,
			"url":          result.URL,
			"available":    result.Available,
			"responseTime": ms,
			"statusCode":   result.StatusCode,
		}
		if result.Err != nil {
			extra["error"] = result.Err.Error()
		}
		hs.recordAnomaly(fmt.Sprintf("External service issue: %s %s", result.Name, state), probeAction, severity, extra)
	}
}

func (hs *healthSampler) checkMemoryGrowth(stats RuntimeStats) {
	now := hs.clock.Now()
	cutoff := now.Add(-hs.growthWindow)

	hs.mut.Lock()
	history := hs.memoryHistory[:0]
	for _, point := range hs.memoryHistory {
		if point.at.After(cutoff) {
			history = append(history, point)
		}
	}
	history = append(history, memoryPoint{at: now, heap: stats.HeapAlloc})
	hs.memoryHistory = history
	first := history[0]
	numPoints := len(history)
	hs.mut.Unlock()

	if numPoints < minGrowthPoints || first.heap == 0 || hs.thresholds.MemoryGrowthPercentage <= 0 {
		return
	}

	growth := (float64(stats.HeapAlloc) - float64(first.heap)) / float64(first.heap) * 100
	if growth <= hs.thresholds.MemoryGrowthPercentage {
		return
	}

	hs.recordAnomaly("Potential memory leak detected", memoryLeakAction, common.SeverityHigh, map[string]interface{}{
		"growthPercentage": growth,
		"initialMemory":    first.heap,
		"currentMemory":    stats.HeapAlloc,
	})
}

func (hs *healthSampler) checkPerformanceDegradation() {
	limitMs := hs.thresholds.ResponseTimeInMilliseconds
	if limitMs <= 0 {
		return
	}

	since := common.ToMillis(hs.clock.Now().Add(-hs.window))
	sum := 0.0
	numSamples := 0
	for _, sample := range hs.recorder.MetricsSince(apiCategory, since) {
		if sample.Name != apiResponseTimeMetric {
			continue
		}
		sum += sample.Value
		numSamples++
	}
	if numSamples < minDegradationSamples {
		return
	}

	average := sum / float64(numSamples)
	if average <= limitMs {
		return
	}

	hs.recordAnomaly("Performance degradation detected", degradationAction, common.SeverityMedium, map[string]interface{}{
		"avgResponseTime": average,
		"sampleCount":     numSamples,
	})
}

func (hs *healthSampler) recordAnomaly(message string, action string, severity common.Severity, extra map[string]interface{}) {
	log.Debug("health anomaly", "message", message, "action", action)

	hs.recorder.RecordError(
		common.ErrorInfo{Name: "Error", Message: message},
		common.ErrorContext{
			Component: infrastructureComponent,
			Action:    action,
			Extra:     extra,
		},
		common.ErrorTypeJavascript,
		severity,
	)
}

// Evaluate recomputes every area verdict from the samples and errors of the current window
func (hs *healthSampler) Evaluate() common.HealthReport {
	now := hs.clock.Now()
	since := common.ToMillis(now.Add(-hs.window))

	errorsPerArea := make(map[string]int)
	unresolved := false
	records := hs.errors.Errors(common.ErrorFilter{
		Resolved:                &unresolved,
		TimeRangeInMilliseconds: hs.window.Milliseconds(),
	})
	for _, record := range records {
		errorsPerArea[areaOf(record)]++
	}

	report := common.HealthReport{
		Areas:     make(map[string]common.AreaHealth, len(areas)),
		Timestamp: common.ToMillis(now),
	}
	for _, area := range areas {
		report.Areas[area] = hs.evaluateArea(area, hs.recorder.MetricsSince(area, since), errorsPerArea[area])
	}
	report.Status = overallStatus(report.Areas)

	hs.mut.Lock()
	previous := hs.lastReport.Status
	hs.lastReport = report
	hs.mut.Unlock()

	if previous != report.Status {
		log.Info("health status changed", "from", previous, "to", report.Status)
	}

	return cloneReport(report)
}

func areaOf(record common.ErrorRecord) string {
	switch record.Context.Component {
	case databaseComponent:
		return AreaDatabase
	case infrastructureComponent:
		switch record.Context.Action {
		case probeAction:
			return AreaExternal
		case memoryLeakAction, exhaustionAction:
			return AreaResources
		}
	}

	return AreaSystem
}

func (hs *healthSampler) evaluateArea(area string, samples []common.MetricSample, numErrors int) common.AreaHealth {
	result := common.AreaHealth{
		Area:      area,
		NumErrors: numErrors,
	}

	for _, sample := range samples {
		result.NumSamples++

		// samples without limits only make the area known
		l, found := hs.limits[sample.Name]
		if !found {
			continue
		}
		result.NumRated++

		warning, critical := l.levels(sample.Value)
		if warning {
			result.NumWarning++
		}
		if critical {
			result.NumCritical++
		}
	}

	ceilingCrossed := hs.thresholds.ErrorCeiling > 0 && numErrors >= hs.thresholds.ErrorCeiling
	switch {
	case result.NumCritical > 0 || ceilingCrossed:
		result.Status = common.HealthUnhealthy
	case result.NumSamples == 0:
		result.Status = common.HealthUnknown
	case result.NumRated > 0 && float64(result.NumWarning)/float64(result.NumRated) >= hs.thresholds.DegradedFraction:
		result.Status = common.HealthDegraded
	default:
		result.Status = common.HealthHealthy
	}

	return result
}

func overallStatus(areaResults map[string]common.AreaHealth) common.HealthStatus {
	numKnown := 0
	allHealthy := true
	for _, result := range areaResults {
		switch result.Status {
		case common.HealthUnhealthy:
			return common.HealthUnhealthy
		case common.HealthUnknown:
			continue
		case common.HealthHealthy:
		default:
			allHealthy = false
		}
		numKnown++
	}

	if numKnown == 0 {
		return common.HealthUnknown
	}
	if allHealthy {
		return common.HealthHealthy
	}

	return common.HealthDegraded
}

func cloneReport(report common.HealthReport) common.HealthReport {
	areaResults := make(map[string]common.AreaHealth, len(report.Areas))
	for area, result := range report.Areas {
		areaResults[area] = result
	}
	report.Areas = areaResults

	return report
}

// LastReport returns the verdict of the latest evaluation
func (hs *healthSampler) LastReport() common.HealthReport {
	hs.mut.RLock()
	defer hs.mut.RUnlock()

	return cloneReport(hs.lastReport)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (hs *healthSampler) IsInterfaceNil() bool {
	return hs == nil
}
