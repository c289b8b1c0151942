package rules

import (
	"time"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const (
	// CriticalErrorsRuleID fires on every critical error record
	CriticalErrorsRuleID = "critical_errors"
	// HighFrequencyRuleID fires on error records seen more than 10 times
	HighFrequencyRuleID = "high_frequency"
	// APIErrorsRuleID fires on api error records seen more than 5 times
	APIErrorsRuleID = "api_errors"
	// SlowResponseRuleID is fired by response time samples above the configured threshold
	SlowResponseRuleID = "slow_response"
	// HighErrorRateRuleID is fired when the error rate goes above the configured threshold
	HighErrorRateRuleID = "high_error_rate"
)

// DefaultRules returns the built-in rule set
func DefaultRules() []common.ErrorRule {
	return []common.ErrorRule{
		{
			ID:   CriticalErrorsRuleID,
			Name: "Critical Error Alert",
			Condition: common.RuleCondition{
				Kind:     common.ConditionSeverity,
				Severity: common.SeverityCritical,
			},
			Severity:             common.SeverityCritical,
			Enabled:              true,
			NotificationChannels: []string{"email", "slack"},
			Cooldown:             (5 * time.Minute).Milliseconds(),
		},
		{
			ID:   HighFrequencyRuleID,
			Name: "High Frequency Error Alert",
			Condition: common.RuleCondition{
				Kind:        common.ConditionOccurrences,
				Occurrences: 10,
			},
			Severity:             common.SeverityHigh,
			Enabled:              true,
			NotificationChannels: []string{"email"},
			Cooldown:             (10 * time.Minute).Milliseconds(),
			Threshold:            10,
			Window:               (5 * time.Minute).Milliseconds(),
		},
		{
			ID:   APIErrorsRuleID,
			Name: "High API Error Rate",
			Condition: common.RuleCondition{
				Kind:        common.ConditionTypeOccurrences,
				Type:        common.ErrorTypeAPI,
				Occurrences: 5,
			},
			Severity:             common.SeverityHigh,
			Enabled:              true,
			NotificationChannels: []string{"slack"},
			Cooldown:             (15 * time.Minute).Milliseconds(),
			Threshold:            5,
			Window:               (10 * time.Minute).Milliseconds(),
		},
		{
			ID:   SlowResponseRuleID,
			Name: "Slow Response",
			Condition: common.RuleCondition{
				Kind: common.ConditionThreshold,
			},
			Severity:             common.SeverityMedium,
			Enabled:              true,
			NotificationChannels: []string{"slack"},
			Cooldown:             (5 * time.Minute).Milliseconds(),
		},
		{
			ID:   HighErrorRateRuleID,
			Name: "High Error Rate",
			Condition: common.RuleCondition{
				Kind: common.ConditionThreshold,
			},
			Severity:             common.SeverityHigh,
			Enabled:              true,
			NotificationChannels: []string{"email", "slack"},
			Cooldown:             (10 * time.Minute).Milliseconds(),
		},
	}
}
