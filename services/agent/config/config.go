package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ProbeConfig defines a single external service health probe
type ProbeConfig struct {
	Name             string `toml:"Name"`
	URL              string `toml:"URL"`
	Value            string `toml:"Value"`
	TimeoutInSeconds uint32 `toml:"TimeoutInSeconds"`
}

// RetentionConfig defines how long each category of data is kept locally
type RetentionConfig struct {
	MetricsInSeconds      uint32 `toml:"MetricsInSeconds"`
	InteractionsInSeconds uint32 `toml:"InteractionsInSeconds"`
	BusinessInSeconds     uint32 `toml:"BusinessInSeconds"`
	ErrorsInSeconds       uint32 `toml:"ErrorsInSeconds"`
	AlertsInSeconds       uint32 `toml:"AlertsInSeconds"`
}

// ThresholdsConfig defines the static thresholds used by the collector and the health sampler
type ThresholdsConfig struct {
	ResponseTimeInMilliseconds     float64 `toml:"ResponseTimeInMilliseconds"`
	ErrorRatePerMinute             float64 `toml:"ErrorRatePerMinute"`
	MemoryWarningPercentage        float64 `toml:"MemoryWarningPercentage"`
	MemoryCriticalPercentage       float64 `toml:"MemoryCriticalPercentage"`
	MemoryLimitInMegabytes         uint64  `toml:"MemoryLimitInMegabytes"`
	APISlowInMilliseconds          float64 `toml:"APISlowInMilliseconds"`
	ProbeSlowInMilliseconds        float64 `toml:"ProbeSlowInMilliseconds"`
	ProbeCriticalInMilliseconds    float64 `toml:"ProbeCriticalInMilliseconds"`
	DatabaseSlowInMilliseconds     float64 `toml:"DatabaseSlowInMilliseconds"`
	DatabaseCriticalInMilliseconds float64 `toml:"DatabaseCriticalInMilliseconds"`
	GoroutinesWarning              float64 `toml:"GoroutinesWarning"`
	GoroutinesCritical             float64 `toml:"GoroutinesCritical"`
	RenderSlowInMilliseconds       float64 `toml:"RenderSlowInMilliseconds"`
	MaxRenderCount                 int     `toml:"MaxRenderCount"`
	DegradedFraction               float64 `toml:"DegradedFraction"`
	ErrorCeiling                   int     `toml:"ErrorCeiling"`
	HealthWindowInSeconds          uint32  `toml:"HealthWindowInSeconds"`
	MemoryGrowthPercentage         float64 `toml:"MemoryGrowthPercentage"`
	MemoryGrowthWindowInSeconds    uint32  `toml:"MemoryGrowthWindowInSeconds"`
}

// IntervalsConfig defines the periods of the background tasks
type IntervalsConfig struct {
	CollectionInSeconds uint32 `toml:"CollectionInSeconds"`
	CleanupInSeconds    uint32 `toml:"CleanupInSeconds"`
	DispatchInSeconds   uint32 `toml:"DispatchInSeconds"`
	ReportInSeconds     uint32 `toml:"ReportInSeconds"`
	HealthInSeconds     uint32 `toml:"HealthInSeconds"`
}

// RuleConfig defines an alert rule as written in the config or in the rules file
type RuleConfig struct {
	ID                string   `toml:"ID" yaml:"id"`
	Name              string   `toml:"Name" yaml:"name"`
	Kind              string   `toml:"Kind" yaml:"kind"`
	MatchSeverity     string   `toml:"MatchSeverity" yaml:"matchSeverity"`
	MatchType         string   `toml:"MatchType" yaml:"matchType"`
	Occurrences       int      `toml:"Occurrences" yaml:"occurrences"`
	Severity          string   `toml:"Severity" yaml:"severity"`
	Enabled           bool     `toml:"Enabled" yaml:"enabled"`
	Channels          []string `toml:"Channels" yaml:"channels"`
	CooldownInSeconds uint32   `toml:"CooldownInSeconds" yaml:"cooldownInSeconds"`
	Threshold         int      `toml:"Threshold" yaml:"threshold"`
	WindowInSeconds   uint32   `toml:"WindowInSeconds" yaml:"windowInSeconds"`
}

// SlackConfig defines the slack incoming webhook channel
type SlackConfig struct {
	Enabled    bool   `toml:"Enabled"`
	WebhookURL string `toml:"WebhookURL"`
	Channel    string `toml:"Channel"`
	Username   string `toml:"Username"`
}

// WebhookConfig defines the generic JSON webhook channel
type WebhookConfig struct {
	Enabled bool              `toml:"Enabled"`
	URL     string            `toml:"URL"`
	Headers map[string]string `toml:"Headers"`
}

// EmailConfig defines the SMTP channel. The password is read from the environment.
type EmailConfig struct {
	Enabled  bool     `toml:"Enabled"`
	SMTPHost string   `toml:"SMTPHost"`
	SMTPPort int      `toml:"SMTPPort"`
	Username string   `toml:"Username"`
	From     string   `toml:"From"`
	To       []string `toml:"To"`
}

// ChannelsConfig groups all notification channels
type ChannelsConfig struct {
	Slack   SlackConfig   `toml:"Slack"`
	Webhook WebhookConfig `toml:"Webhook"`
	Email   EmailConfig   `toml:"Email"`
	Log     bool          `toml:"Log"`
}

// DispatchConfig defines the retry and circuit breaker behaviour of the alert dispatcher
type DispatchConfig struct {
	MaxRetries                   uint64 `toml:"MaxRetries"`
	InitialBackoffInMilliseconds uint32 `toml:"InitialBackoffInMilliseconds"`
	MaxBackoffInMilliseconds     uint32 `toml:"MaxBackoffInMilliseconds"`
	BreakerConsecutiveFailures   int64  `toml:"BreakerConsecutiveFailures"`
	SendTimeoutInSeconds         uint32 `toml:"SendTimeoutInSeconds"`
}

// Config maps to the config.toml file for the monitoring agent
type Config struct {
	Name                   string           `toml:"Name"`
	Environment            string           `toml:"Environment"`
	Version                string           `toml:"Version"`
	Enabled                bool             `toml:"Enabled"`
	SampleRate             float64          `toml:"SampleRate"`
	Debug                  bool             `toml:"Debug"`
	CooldownEnforced       bool             `toml:"CooldownEnforced"`
	MaxLogEntries          int              `toml:"MaxLogEntries"`
	TraceTimeoutInSeconds  uint32           `toml:"TraceTimeoutInSeconds"`
	ReportEndpoint         string           `toml:"ReportEndpoint"`
	ReportTimeoutInSeconds uint32           `toml:"ReportTimeoutInSeconds"`
	RulesFile              string           `toml:"RulesFile"`
	DisableDefaultRules    bool             `toml:"DisableDefaultRules"`
	Retention              RetentionConfig  `toml:"Retention"`
	Thresholds             ThresholdsConfig `toml:"Thresholds"`
	Intervals              IntervalsConfig  `toml:"Intervals"`
	Dispatch               DispatchConfig   `toml:"Dispatch"`
	Channels               ChannelsConfig   `toml:"Channels"`
	Rules                  []RuleConfig     `toml:"Rules"`
	Probes                 []ProbeConfig    `toml:"Probes"`
}

// DefaultConfig returns the configuration used when a value is not provided
func DefaultConfig() Config {
	return Config{
		Name:                   "agent",
		Environment:            "development",
		Version:                "1.0.0",
		Enabled:                true,
		SampleRate:             0.1,
		CooldownEnforced:       true,
		MaxLogEntries:          10000,
		TraceTimeoutInSeconds:  300,
		ReportTimeoutInSeconds: 10,
		Retention: RetentionConfig{
			MetricsInSeconds:      3600,
			InteractionsInSeconds: 3600,
			BusinessInSeconds:     3600,
			ErrorsInSeconds:       30 * 24 * 3600,
			AlertsInSeconds:       7 * 24 * 3600,
		},
		Thresholds: ThresholdsConfig{
			ResponseTimeInMilliseconds:     2000,
			ErrorRatePerMinute:             10,
			MemoryWarningPercentage:        80,
			MemoryCriticalPercentage:       90,
			MemoryLimitInMegabytes:         1024,
			APISlowInMilliseconds:          5000,
			ProbeSlowInMilliseconds:        5000,
			ProbeCriticalInMilliseconds:    15000,
			DatabaseSlowInMilliseconds:     1000,
			DatabaseCriticalInMilliseconds: 5000,
			GoroutinesWarning:              1000,
			GoroutinesCritical:             10000,
			RenderSlowInMilliseconds:       100,
			MaxRenderCount:                 10,
			DegradedFraction:               0.2,
			ErrorCeiling:                   10,
			HealthWindowInSeconds:          300,
			MemoryGrowthPercentage:         50,
			MemoryGrowthWindowInSeconds:    300,
		},
		Intervals: IntervalsConfig{
			CollectionInSeconds: 30,
			CleanupInSeconds:    3600,
			DispatchInSeconds:   10,
			ReportInSeconds:     60,
			HealthInSeconds:     60,
		},
		Dispatch: DispatchConfig{
			MaxRetries:                   2,
			InitialBackoffInMilliseconds: 500,
			MaxBackoffInMilliseconds:     5000,
			BreakerConsecutiveFailures:   5,
			SendTimeoutInSeconds:         10,
		},
		Channels: ChannelsConfig{
			Log: true,
		},
	}
}

// LoadConfig parses a TOML file over the default configuration
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	cfg := DefaultConfig()
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}
