package factory

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/config"
	agentConfig "github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestArgs() ArgsComponentsHandler {
	cfg := config.DefaultConfig()
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.Retention.MetricsInSeconds = 3600

	return ArgsComponentsHandler{
		SQLitePath:    ":memory:",
		ServiceKeyApi: "service-key",
		AuthUsername:  "admin",
		AuthPassword:  "admin123",
		Config:        cfg,
	}
}

func TestNewComponentsHandler(t *testing.T) {
	t.Parallel()

	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		handler, err := NewComponentsHandler(createTestArgs())
		assert.NotNil(t, handler)
		assert.Nil(t, err)

		handler.Close()
	})
	t.Run("invalid number of aggregation should error", func(t *testing.T) {
		t.Parallel()

		args := createTestArgs()
		args.Config.NumAggregation = 0

		handler, err := NewComponentsHandler(args)
		assert.Nil(t, handler)
		assert.NotNil(t, err)
	})
	t.Run("invalid monitoring config should error", func(t *testing.T) {
		t.Parallel()

		args := createTestArgs()
		args.Config.Monitoring.Rules = []agentConfig.RuleConfig{{Name: "broken", Kind: "unknown"}}

		handler, err := NewComponentsHandler(args)
		assert.Nil(t, handler)
		assert.ErrorIs(t, err, rules.ErrUnknownConditionKind)
	})
}

func TestComponentsHandlerMethods(t *testing.T) {
	t.Parallel()

	handler, err := NewComponentsHandler(createTestArgs())
	require.Nil(t, err)

	handler.Start()
	assert.True(t, handler.GetAgent().IsRunning())

	store := handler.GetStore()
	assert.Equal(t, "*storage.sqliteStorage", fmt.Sprintf("%T", store))

	serv := handler.GetServer()
	assert.Equal(t, "*api.server", fmt.Sprintf("%T", serv))

	resp, err := http.Get("http://" + serv.Address() + "/api/health")
	require.Nil(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + serv.Address() + "/metrics")
	require.Nil(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	handler.Close()
	assert.False(t, handler.GetAgent().IsRunning())
}
