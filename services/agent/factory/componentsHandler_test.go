package factory

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/commonGo"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/notifier"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesFileContent = `rules:
  - id: payment_failures
    name: Payment failures
    kind: category
    matchType: business
    severity: high
    enabled: true
    channels: [log]
    cooldownInSeconds: 60
`

func createTestConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "vm1"
	cfg.SampleRate = 1

	return cfg
}

func TestNewComponentsHandler(t *testing.T) {
	t.Parallel()

	t.Run("default config should work in local-only mode", func(t *testing.T) {
		t.Parallel()

		handler, err := NewComponentsHandler(Secrets{}, createTestConfig())
		require.Nil(t, err)
		assert.Equal(t, "*engine.agentEngine", fmt.Sprintf("%T", handler.GetEngine()))
		assert.False(t, handler.GetEngine().IsReporting())
		assert.Len(t, handler.tasks, 4)
		assert.Len(t, handler.GetEngine().Rules(), len(rules.DefaultRules()))
		assert.NotNil(t, handler.GetRegistry())
	})
	t.Run("report endpoint should enable the report task", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.ReportEndpoint = "http://127.0.0.1:1"

		handler, err := NewComponentsHandler(Secrets{ServiceKey: "service-key"}, cfg)
		require.Nil(t, err)
		assert.True(t, handler.GetEngine().IsReporting())
		require.Len(t, handler.tasks, 5)
		assert.Equal(t, "report", handler.tasks[4].Name())
	})
	t.Run("invalid channel config should error", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Channels.Slack.Enabled = true

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		assert.Nil(t, handler)
		assert.True(t, errors.Is(err, notifier.ErrEmptyURL))
	})
	t.Run("invalid configured rule should error", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Rules = []config.RuleConfig{{Name: "broken", Kind: "unknown"}}

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		assert.Nil(t, handler)
		assert.True(t, errors.Is(err, rules.ErrUnknownConditionKind))
		assert.Contains(t, err.Error(), "in the config file")
	})
	t.Run("missing rules file should error", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		assert.Nil(t, handler)
		assert.ErrorContains(t, err, "failed to read rules file")
	})
	t.Run("zero interval should error", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Intervals.DispatchInSeconds = 0

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		assert.Nil(t, handler)
		assert.True(t, errors.Is(err, commonGo.ErrInvalidInterval))
		assert.Contains(t, err.Error(), "dispatch")
	})
	t.Run("rules should be gathered from defaults, config and file", func(t *testing.T) {
		t.Parallel()

		rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
		require.Nil(t, os.WriteFile(rulesFile, []byte(rulesFileContent), 0644))

		cfg := createTestConfig()
		cfg.Channels.Webhook = config.WebhookConfig{
			Enabled: true,
			URL:     "http://127.0.0.1:1/hook",
		}
		cfg.RulesFile = rulesFile
		cfg.Rules = []config.RuleConfig{
			{
				ID:            "all_critical",
				Name:          "All critical",
				Kind:          "severity",
				MatchSeverity: "critical",
				Severity:      "critical",
				Enabled:       true,
				Channels:      []string{"webhook"},
			},
		}

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		require.Nil(t, err)

		ruleIDs := make([]string, 0)
		for _, rule := range handler.GetEngine().Rules() {
			ruleIDs = append(ruleIDs, rule.ID)
		}
		assert.Len(t, ruleIDs, len(rules.DefaultRules())+2)
		assert.Contains(t, ruleIDs, "all_critical")
		assert.Contains(t, ruleIDs, "payment_failures")
	})
	t.Run("disabled default rules", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.DisableDefaultRules = true

		handler, err := NewComponentsHandler(Secrets{}, cfg)
		require.Nil(t, err)
		assert.Empty(t, handler.GetEngine().Rules())
	})
}

func TestComponentsHandler_StartClose(t *testing.T) {
	t.Parallel()

	handler, err := NewComponentsHandler(Secrets{}, createTestConfig())
	require.Nil(t, err)
	assert.False(t, handler.IsRunning())

	handler.Start()
	handler.Start()
	assert.True(t, handler.IsRunning())
	for _, task := range handler.tasks {
		assert.True(t, task.IsRunning(), task.Name())
	}

	handler.Close()
	handler.Close()
	assert.False(t, handler.IsRunning())
	for _, task := range handler.tasks {
		assert.False(t, task.IsRunning(), task.Name())
	}
}

func TestComponentsHandler_ReportsToTheIngestionService(t *testing.T) {
	t.Parallel()

	mut := sync.Mutex{}
	receivedKeys := make(map[string]string)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mut.Lock()
		receivedKeys[r.URL.Path] = r.Header.Get("X-Api-Key")
		mut.Unlock()

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.ReportEndpoint = server.URL

	handler, err := NewComponentsHandler(Secrets{ServiceKey: "service-key"}, cfg)
	require.Nil(t, err)

	handler.GetEngine().RecordMetric(common.MetricSample{Name: "checkout.duration", Value: 120, Unit: common.UnitMilliseconds})
	handler.GetEngine().RecordError(errors.New("checkout failed"), common.ErrorContext{Component: "checkout"})

	handler.Start()
	defer handler.Close()

	require.Eventually(t, func() bool {
		mut.Lock()
		defer mut.Unlock()

		return receivedKeys["/api/metrics"] == "service-key" && receivedKeys["/api/errors"] == "service-key"
	}, 5*time.Second, 10*time.Millisecond)
}
