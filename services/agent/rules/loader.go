package rules

import (
	"fmt"
	"os"
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []config.RuleConfig `yaml:"rules"`
}

// FromConfig converts the configured rule definitions
func FromConfig(definitions []config.RuleConfig) ([]common.ErrorRule, error) {
	result := make([]common.ErrorRule, 0, len(definitions))
	for idx, def := range definitions {
		rule := common.ErrorRule{
			ID:   def.ID,
			Name: def.Name,
			Condition: common.RuleCondition{
				Kind:        common.ConditionKind(def.Kind),
				Severity:    common.Severity(def.MatchSeverity),
				Type:        common.ErrorType(def.MatchType),
				Occurrences: def.Occurrences,
			},
			Severity:             common.Severity(def.Severity),
			Enabled:              def.Enabled,
			NotificationChannels: append([]string(nil), def.Channels...),
			Cooldown:             (time.Duration(def.CooldownInSeconds) * time.Second).Milliseconds(),
			Threshold:            def.Threshold,
			Window:               (time.Duration(def.WindowInSeconds) * time.Second).Milliseconds(),
		}

		err := validateRule(rule)
		if err != nil {
			return nil, fmt.Errorf("%w for rule at index %d", err, idx)
		}

		result = append(result, rule)
	}

	return result, nil
}

// LoadRulesFile reads the rule definitions from a YAML file
func LoadRulesFile(path string) ([]common.ErrorRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", path, err)
	}

	var file rulesFile
	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rules file: %w", err)
	}

	return FromConfig(file.Rules)
}
