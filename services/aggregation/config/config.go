package config

import (
	"fmt"
	"os"

	agentConfig "github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/pelletier/go-toml/v2"
)

// RetentionConfig defines how long each stored category is kept
type RetentionConfig struct {
	MetricsInSeconds uint32 `toml:"MetricsInSeconds"`
	ErrorsInSeconds  uint32 `toml:"ErrorsInSeconds"`
	AlertsInSeconds  uint32 `toml:"AlertsInSeconds"`
}

// Config maps to the config.toml file for the aggregation service
type Config struct {
	ListenAddress  string             `toml:"ListenAddress"`
	StaticDir      string             `toml:"StaticDir"`
	NumAggregation int                `toml:"NumAggregation"`
	Retention      RetentionConfig    `toml:"Retention"`
	Monitoring     agentConfig.Config `toml:"Monitoring"`
}

// DefaultConfig returns the configuration used when a value is not provided
func DefaultConfig() Config {
	monitoring := agentConfig.DefaultConfig()
	monitoring.Name = "aggregation"
	monitoring.SampleRate = 1

	return Config{
		ListenAddress:  "0.0.0.0:8080",
		NumAggregation: 100,
		Retention: RetentionConfig{
			MetricsInSeconds: 24 * 3600,
			ErrorsInSeconds:  30 * 24 * 3600,
			AlertsInSeconds:  7 * 24 * 3600,
		},
		Monitoring: monitoring,
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
