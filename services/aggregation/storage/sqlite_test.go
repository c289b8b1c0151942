package storage

import (
	"context"
	"testing"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/config"
	agentCommon "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T, numAggregation int) *sqliteStorage {
	s, err := NewSQLiteStorage(ArgsSQLiteStorage{
		DBPath:         ":memory:",
		NumAggregation: numAggregation,
		Retention: config.RetentionConfig{
			MetricsInSeconds: 3600,
			ErrorsInSeconds:  3600,
			AlertsInSeconds:  3600,
		},
	})
	require.NoError(t, err)
	require.False(t, s.IsInterfaceNil())
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func createErrorRecord(id string, severity agentCommon.Severity, occurrences int, lastSeen int64) agentCommon.ErrorRecord {
	return agentCommon.ErrorRecord{
		ID:          id,
		Fingerprint: id,
		Message:     "message of " + id,
		Name:        "Error",
		Type:        agentCommon.ErrorTypeAPI,
		Severity:    severity,
		Context:     agentCommon.ErrorContext{Component: "checkout"},
		Occurrences: occurrences,
		FirstSeen:   lastSeen - 1000,
		LastSeen:    lastSeen,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Parallel()

	s, err := NewSQLiteStorage(ArgsSQLiteStorage{DBPath: ":memory:"})
	assert.Nil(t, s)
	assert.Equal(t, ErrInvalidNumAggregation, err)
}

func TestCleanupInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, minCleanupInterval, cleanupInterval(config.RetentionConfig{}))
	assert.Equal(t, minCleanupInterval, cleanupInterval(config.RetentionConfig{MetricsInSeconds: 100}))
	assert.Equal(t, 360*time.Second, cleanupInterval(config.RetentionConfig{
		MetricsInSeconds: 3600,
		ErrorsInSeconds:  86400,
	}))
}

func TestSQLiteStorage_SaveAndGetSamples(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 2)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	numStored, err := s.SaveSamples(ctx, "vm1", []agentCommon.MetricSample{
		{Name: "api.response_time", Value: 100, Unit: agentCommon.UnitMilliseconds, Timestamp: now - 10000},
		{Name: "api.response_time", Value: 101, Unit: agentCommon.UnitMilliseconds, Timestamp: now - 5000},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, numStored)

	// same timestamp is ignored, the third value trims "100"
	numStored, err = s.SaveSamples(ctx, "vm1", []agentCommon.MetricSample{
		{Name: "api.response_time", Value: 101, Unit: agentCommon.UnitMilliseconds, Timestamp: now - 5000},
		{Name: "api.response_time", Value: 102, Unit: agentCommon.UnitMilliseconds, Timestamp: now},
		{Name: "resource.memory_usage", Value: 42.5, Unit: agentCommon.UnitPercentage, Timestamp: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, numStored)

	hist, err := s.GetMetricHistory(ctx, "vm1.api.response_time")
	require.NoError(t, err)
	assert.Equal(t, "vm1", hist.Agent)
	assert.Equal(t, string(agentCommon.UnitMilliseconds), hist.Unit)
	assert.Equal(t, 2, hist.NumAggregation)
	assert.Equal(t, []common.MetricValue{{Value: 101, RecordedAt: now - 5000}, {Value: 102, RecordedAt: now}}, hist.History)

	latest, err := s.GetLatestMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "vm1.api.response_time", latest[0].Name)
	assert.Equal(t, 102.0, latest[0].History[0].Value)
	assert.Equal(t, "vm1.resource.memory_usage", latest[1].Name)
	assert.Equal(t, 42.5, latest[1].History[0].Value)

	_, err = s.GetMetricHistory(ctx, "vm2.api.response_time")
	assert.Equal(t, ErrMetricNotFound, err)

	err = s.DeleteMetric(ctx, "vm1.resource.memory_usage")
	require.NoError(t, err)

	latestAfterDelete, err := s.GetLatestMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, latestAfterDelete, 1)
	assert.Equal(t, "vm1.api.response_time", latestAfterDelete[0].Name)
}

func TestSQLiteStorage_SaveAndGetErrors(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 10)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	numStored, err := s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{
		createErrorRecord("err-1", agentCommon.SeverityCritical, 1, now-2000),
		createErrorRecord("err-2", agentCommon.SeverityLow, 3, now-1000),
		{Message: "no id"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, numStored)

	t.Run("same lastSeen should be ignored", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{
			createErrorRecord("err-1", agentCommon.SeverityCritical, 5, now-2000),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, numStored)
	})
	t.Run("newer lastSeen should update", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{
			createErrorRecord("err-1", agentCommon.SeverityCritical, 4, now),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, numStored)
	})
	t.Run("same id on another agent is a distinct row", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm2", []agentCommon.ErrorRecord{
			createErrorRecord("err-1", agentCommon.SeverityCritical, 1, now),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, numStored)
	})

	records, err := s.GetErrors(ctx, common.ErrorQuery{Agent: "vm1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "err-1", records[0].ID)
	assert.Equal(t, 4, records[0].Occurrences)
	assert.Equal(t, "checkout", records[0].Context.Component)
	assert.Equal(t, "err-2", records[1].ID)

	records, err = s.GetErrors(ctx, common.ErrorQuery{Severity: string(agentCommon.SeverityCritical)})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.GetErrors(ctx, common.ErrorQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	found, err := s.SetResolution(ctx, "err-2", common.Resolution{
		Resolved:   true,
		Notes:      "fixed in 2.3.2",
		ResolvedBy: "admin",
		ResolvedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, found)

	resolved := true
	records, err = s.GetErrors(ctx, common.ErrorQuery{Resolved: &resolved})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Resolved)
	assert.Equal(t, "fixed in 2.3.2", records[0].Context.ResolutionNotes)
	assert.Equal(t, "admin", records[0].Context.ResolvedBy)

	found, err = s.SetResolution(ctx, "err-2", common.Resolution{Resolved: false, Notes: "ignored"})
	require.NoError(t, err)
	assert.True(t, found)

	records, err = s.GetErrors(ctx, common.ErrorQuery{Resolved: &resolved})
	require.NoError(t, err)
	assert.Empty(t, records)

	found, err = s.SetResolution(ctx, "missing", common.Resolution{Resolved: true})
	require.NoError(t, err)
	assert.False(t, found)

	summary, err := s.GetErrorSummary(ctx, now-1500)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.UniqueErrors)
	assert.Equal(t, 8, summary.TotalErrors)
	assert.Equal(t, 2, summary.CriticalErrors)
	assert.Equal(t, 0, summary.ResolvedErrors)
	assert.Equal(t, map[string]int{"vm1": 7, "vm2": 1}, summary.ErrorsByAgent)
	assert.Equal(t, map[string]int{"critical": 5, "low": 3}, summary.ErrorsBySeverity)
	assert.Equal(t, map[string]int{"api": 8}, summary.ErrorsByType)
	require.Len(t, summary.TopErrors, 3)
	assert.Equal(t, 4, summary.TopErrors[0].Occurrences)
}

func TestSQLiteStorage_SaveErrorsResolutionUpdates(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 10)
	ctx := context.Background()
	now := time.Now().UnixMilli()
	record := createErrorRecord("err-1", agentCommon.SeverityHigh, 2, now)

	numStored, err := s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{record})
	require.NoError(t, err)
	require.Equal(t, 1, numStored)

	resolvedRecord := record
	resolvedRecord.Resolved = true
	resolvedRecord.Context.ResolutionNotes = "gateway restarted"
	resolvedRecord.Context.ResolvedBy = "user"
	resolvedRecord.Context.ResolvedAt = now + 60000

	getRecord := func() common.StoredError {
		records, errGet := s.GetErrors(ctx, common.ErrorQuery{Agent: "vm1"})
		require.NoError(t, errGet)
		require.Len(t, records, 1)

		return records[0]
	}

	t.Run("agent resolution with the same lastSeen should update", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{resolvedRecord})
		require.NoError(t, err)
		assert.Equal(t, 1, numStored)

		stored := getRecord()
		assert.True(t, stored.Resolved)
		assert.Equal(t, "gateway restarted", stored.Context.ResolutionNotes)
		assert.Equal(t, now+60000, stored.Context.ResolvedAt)
	})
	t.Run("an older resolution should not override a newer one", func(t *testing.T) {
		found, errSet := s.SetResolution(ctx, "err-1", common.Resolution{
			Resolved:   true,
			Notes:      "confirmed on dashboard",
			ResolvedBy: "admin",
			ResolvedAt: now + 120000,
		})
		require.NoError(t, errSet)
		require.True(t, found)

		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{resolvedRecord})
		require.NoError(t, err)
		assert.Equal(t, 0, numStored)
		assert.Equal(t, "confirmed on dashboard", getRecord().Context.ResolutionNotes)
	})
	t.Run("agent reopen with the same lastSeen should update", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{record})
		require.NoError(t, err)
		assert.Equal(t, 1, numStored)

		stored := getRecord()
		assert.False(t, stored.Resolved)
		assert.Empty(t, stored.Context.ResolutionNotes)
		assert.Zero(t, stored.Context.ResolvedAt)
	})
	t.Run("unchanged resolution with the same lastSeen should be ignored", func(t *testing.T) {
		numStored, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{record})
		require.NoError(t, err)
		assert.Equal(t, 0, numStored)
	})
}

func TestSQLiteStorage_SaveAndGetAlerts(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 10)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	alerts := []agentCommon.AlertEvent{
		{ID: "alert-1", RuleID: "critical_errors", Severity: agentCommon.SeverityCritical, Message: "first", Timestamp: now - 1000, Notified: true},
		{ID: "alert-2", RuleID: "api_errors", Severity: agentCommon.SeverityHigh, Message: "second", Timestamp: now, Notified: true},
	}

	stored, err := s.SaveAlerts(ctx, "vm1", alerts)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "vm1", stored[0].Agent)

	stored, err = s.SaveAlerts(ctx, "vm1", alerts)
	require.NoError(t, err)
	assert.Empty(t, stored)

	results, err := s.GetAlerts(ctx, common.AlertQuery{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alert-2", results[0].ID)
	assert.Equal(t, "second", results[0].Message)

	results, err = s.GetAlerts(ctx, common.AlertQuery{Since: now - 500})
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = s.GetAlerts(ctx, common.AlertQuery{Agent: "vm2"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStorage_RetentionCleaner(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 10)
	ctx := context.Background()
	now := time.Now()
	stale := now.Add(-2 * time.Hour).UnixMilli()

	_, err := s.SaveSamples(ctx, "vm1", []agentCommon.MetricSample{
		{Name: "old.metric", Value: 1, Timestamp: stale},
		{Name: "fresh.metric", Value: 1, Timestamp: now.UnixMilli()},
	})
	require.NoError(t, err)
	_, err = s.SaveErrors(ctx, "vm1", []agentCommon.ErrorRecord{
		createErrorRecord("stale", agentCommon.SeverityLow, 1, stale),
		createErrorRecord("fresh", agentCommon.SeverityLow, 1, now.UnixMilli()),
	})
	require.NoError(t, err)
	_, err = s.SaveAlerts(ctx, "vm1", []agentCommon.AlertEvent{
		{ID: "stale", Timestamp: stale},
		{ID: "fresh", Timestamp: now.UnixMilli()},
	})
	require.NoError(t, err)

	err = s.cleanRetained(ctx, now)
	require.NoError(t, err)

	hist, err := s.GetMetricHistory(ctx, "vm1.old.metric")
	require.NoError(t, err)
	assert.Equal(t, "vm1.old.metric", hist.Name)
	assert.Empty(t, hist.History)

	hist, err = s.GetMetricHistory(ctx, "vm1.fresh.metric")
	require.NoError(t, err)
	assert.Len(t, hist.History, 1)

	records, err := s.GetErrors(ctx, common.ErrorQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].ID)

	alerts, err := s.GetAlerts(ctx, common.AlertQuery{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "fresh", alerts[0].ID)
}

func TestSQLiteStorage_Ordering(t *testing.T) {
	t.Parallel()

	s := createTestStorage(t, 1)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	_, err := s.SaveSamples(ctx, "vm1", []agentCommon.MetricSample{
		{Name: "m1", Value: 1, Timestamp: now},
		{Name: "m2", Value: 2, Timestamp: now},
	})
	require.NoError(t, err)

	err = s.UpdateMetricOrder(ctx, "vm1.m2", -1)
	require.NoError(t, err)

	latest, err := s.GetLatestMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "vm1.m2", latest[0].Name)
	assert.Equal(t, -1, latest[0].DisplayOrder)
	assert.Equal(t, 0, latest[1].DisplayOrder)

	err = s.UpdatePanelOrder(ctx, "vm1", 5)
	require.NoError(t, err)
	err = s.UpdatePanelOrder(ctx, "vm2", 1)
	require.NoError(t, err)

	configs, err := s.GetPanelsConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"vm1": 5, "vm2": 1}, configs)

	err = s.UpdatePanelOrder(ctx, "vm1", 0)
	require.NoError(t, err)
	configs, err = s.GetPanelsConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, configs["vm1"])
}
