package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	testString := `
Name = "fleet-web"
Environment = "production"
Version = "2.3.1"
Enabled = true
SampleRate = 0.25
CooldownEnforced = true
MaxLogEntries = 500
ReportEndpoint = "https://aaa.bbb.com"
ReportTimeoutInSeconds = 10

[Intervals]
    CollectionInSeconds = 30
    CleanupInSeconds = 3600
    DispatchInSeconds = 10
    ReportInSeconds = 60
    HealthInSeconds = 60

[Channels]
    Log = true
    [Channels.Webhook]
        Enabled = true
        URL = "https://hooks.bbb.com/alerts"
        [Channels.Webhook.Headers]
            Authorization = "Bearer abc"

[[Rules]]
    ID = "api-errors"
    Name = "API errors"
    Kind = "type_occurrences"
    MatchType = "api"
    Occurrences = 5
    Severity = "high"
    Enabled = true
    Channels = ["webhook"]
    CooldownInSeconds = 900

[[Probes]]
    Name = "billing"
    URL = "http://127.0.0.1:8080/health"
    Value = "status"
    TimeoutInSeconds = 5
`

	expectedCfg := Config{
		Name:                   "fleet-web",
		Environment:            "production",
		Version:                "2.3.1",
		Enabled:                true,
		SampleRate:             0.25,
		CooldownEnforced:       true,
		MaxLogEntries:          500,
		ReportEndpoint:         "https://aaa.bbb.com",
		ReportTimeoutInSeconds: 10,
		Intervals: IntervalsConfig{
			CollectionInSeconds: 30,
			CleanupInSeconds:    3600,
			DispatchInSeconds:   10,
			ReportInSeconds:     60,
			HealthInSeconds:     60,
		},
		Channels: ChannelsConfig{
			Log: true,
			Webhook: WebhookConfig{
				Enabled: true,
				URL:     "https://hooks.bbb.com/alerts",
				Headers: map[string]string{
					"Authorization": "Bearer abc",
				},
			},
		},
		Rules: []RuleConfig{
			{
				ID:                "api-errors",
				Name:              "API errors",
				Kind:              "type_occurrences",
				MatchType:         "api",
				Occurrences:       5,
				Severity:          "high",
				Enabled:           true,
				Channels:          []string{"webhook"},
				CooldownInSeconds: 900,
			},
		},
		Probes: []ProbeConfig{
			{
				Name:             "billing",
				URL:              "http://127.0.0.1:8080/health",
				Value:            "status",
				TimeoutInSeconds: 5,
			},
		},
	}

	cfg := Config{}

	err := toml.Unmarshal([]byte(testString), &cfg)
	assert.Nil(t, err)
	assert.Equal(t, expectedCfg, cfg)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file should error", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("invalid content should error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.toml")
		require.Nil(t, os.WriteFile(path, []byte("Name = "), 0644))

		cfg, err := LoadConfig(path)
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to decode config file")
	})
	t.Run("values not provided should keep the defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.toml")
		require.Nil(t, os.WriteFile(path, []byte("Name = \"svc\"\nSampleRate = 1.0\n"), 0644))

		cfg, err := LoadConfig(path)
		require.Nil(t, err)

		defaults := DefaultConfig()
		assert.Equal(t, "svc", cfg.Name)
		assert.Equal(t, 1.0, cfg.SampleRate)
		assert.True(t, cfg.CooldownEnforced)
		assert.Equal(t, defaults.Retention, cfg.Retention)
		assert.Equal(t, defaults.Thresholds, cfg.Thresholds)
		assert.Equal(t, uint32(10), cfg.Intervals.DispatchInSeconds)
	})
}
