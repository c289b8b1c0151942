package rules

import (
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/patrickmn/go-cache"
)

const cooldownCleanupInterval = 10 * time.Minute

var log = logger.GetOrCreate("agent/rules")

// ArgsRuleEvaluator is the DTO used to create a new rule evaluator
type ArgsRuleEvaluator struct {
	Clock            clock.Clock
	Sink             AlertSink
	CooldownEnforced bool
	Rules            []common.ErrorRule
}

type ruleEvaluator struct {
	clock            clock.Clock
	sink             AlertSink
	cooldownEnforced bool
	cooldowns        *cache.Cache

	mut   sync.RWMutex
	rules []*common.ErrorRule
}

// NewRuleEvaluator creates a new rule evaluator holding the provided rules
func NewRuleEvaluator(args ArgsRuleEvaluator) (*ruleEvaluator, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}
	if check.IfNil(args.Sink) {
		return nil, ErrNilAlertSink
	}

	re := &ruleEvaluator{
		clock:            args.Clock,
		sink:             args.Sink,
		cooldownEnforced: args.CooldownEnforced,
		cooldowns:        cache.New(cache.NoExpiration, cooldownCleanupInterval),
		rules:            make([]*common.ErrorRule, 0, len(args.Rules)),
	}

	for _, rule := range args.Rules {
		err := validateRule(rule)
		if err != nil {
			return nil, fmt.Errorf("%w for rule %s", err, rule.ID)
		}
		re.Create(rule)
	}

	return re, nil
}

func validateRule(rule common.ErrorRule) error {
	if len(rule.Name) == 0 {
		return fmt.Errorf("%w: empty name", ErrInvalidRule)
	}
	switch rule.Condition.Kind {
	case common.ConditionSeverity:
		if len(rule.Condition.Severity) == 0 {
			return fmt.Errorf("%w: empty severity", ErrInvalidRule)
		}
	case common.ConditionOccurrences, common.ConditionThreshold:
	case common.ConditionTypeOccurrences, common.ConditionCategory:
		if len(rule.Condition.Type) == 0 {
			return fmt.Errorf("%w: empty type", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownConditionKind, rule.Condition.Kind)
	}

	return nil
}

// Matches returns true if the condition holds for the current record state
func Matches(condition common.RuleCondition, record common.ErrorRecord) bool {
	switch condition.Kind {
	case common.ConditionSeverity:
		return record.Severity == condition.Severity
	case common.ConditionOccurrences:
		return record.Occurrences > condition.Occurrences
	case common.ConditionTypeOccurrences:
		return record.Type == condition.Type && record.Occurrences > condition.Occurrences
	case common.ConditionCategory:
		return record.Type == condition.Type
	default:
		return false
	}
}

// OnRecord evaluates the record and enqueues the produced alerts
func (re *ruleEvaluator) OnRecord(record common.ErrorRecord) {
	for _, alert := range re.Evaluate(record) {
		re.sink.Enqueue(alert)
	}
}

// Evaluate checks every enabled rule against the record and returns one alert per match
func (re *ruleEvaluator) Evaluate(record common.ErrorRecord) []common.AlertEvent {
	re.mut.RLock()
	matched := make([]common.ErrorRule, 0)
	for _, rule := range re.rules {
		if rule.Enabled && Matches(rule.Condition, record) {
			matched = append(matched, cloneRule(*rule))
		}
	}
	re.mut.RUnlock()

	alerts := make([]common.AlertEvent, 0, len(matched))
	for _, rule := range matched {
		if !re.tryAcquire(rule, record.ID) {
			log.Trace("rule in cooldown", "rule", rule.ID, "error", record.ID)
			continue
		}

		alert := re.newAlert(rule, fmt.Sprintf("%s: %s (%d occurrences)", rule.Name, record.Message, record.Occurrences))
		alert.ErrorID = record.ID
		alerts = append(alerts, alert)

		log.Debug("rule matched", "rule", rule.ID, "error", record.ID, "occurrences", record.Occurrences)
	}

	return alerts
}

// EvaluateThreshold fires the threshold rule with the provided id for the metric, subject to the rule cooldown
func (re *ruleEvaluator) EvaluateThreshold(ruleID string, metricName string, message string) common.OpResult {
	re.mut.RLock()
	var rule *common.ErrorRule
	for _, r := range re.rules {
		if r.ID == ruleID {
			c := cloneRule(*r)
			rule = &c
			break
		}
	}
	re.mut.RUnlock()

	if rule == nil {
		common.DiagnosticsLog.Debug("threshold fired for unknown rule", "rule", ruleID, "metric", metricName)
		return common.Fail(common.ReasonUnknownRule)
	}
	if !rule.Enabled {
		return common.Fail(common.ReasonRuleDisabled)
	}
	if !re.tryAcquire(*rule, metricName) {
		return common.Fail(common.ReasonCooldown)
	}

	alert := re.newAlert(*rule, fmt.Sprintf("%s: %s", rule.Name, message))
	alert.MetricName = metricName
	re.sink.Enqueue(alert)

	log.Debug("threshold exceeded", "rule", ruleID, "metric", metricName)

	return common.Ok()
}

func (re *ruleEvaluator) newAlert(rule common.ErrorRule, message string) common.AlertEvent {
	return common.AlertEvent{
		ID:            uuid.NewString(),
		RuleID:        rule.ID,
		Severity:      rule.Severity,
		Message:       message,
		Timestamp:     common.ToMillis(re.clock.Now()),
		Channels:      rule.NotificationChannels,
		Notifications: make([]common.NotificationAttempt, 0, len(rule.NotificationChannels)),
	}
}

// tryAcquire returns false while the rule and subject pair is in cooldown, otherwise it starts a new cooldown period.
// The cache expiry only bounds memory, the cooldown itself is measured with the injected clock.
func (re *ruleEvaluator) tryAcquire(rule common.ErrorRule, subject string) bool {
	if !re.cooldownEnforced || rule.Cooldown <= 0 {
		return true
	}

	key := rule.ID + "|" + subject
	now := re.clock.Now()
	cooldown := time.Duration(rule.Cooldown) * time.Millisecond

	re.mut.Lock()
	defer re.mut.Unlock()

	value, found := re.cooldowns.Get(key)
	if found {
		expiry, ok := value.(time.Time)
		if ok && now.Before(expiry) {
			return false
		}
	}

	re.cooldowns.Set(key, now.Add(cooldown), cooldown)

	return true
}

// Create adds a rule and returns its id. A new id is generated when none is provided.
func (re *ruleEvaluator) Create(rule common.ErrorRule) string {
	rule = cloneRule(rule)
	if len(rule.ID) == 0 {
		rule.ID = "rule_" + uuid.NewString()
	}

	re.mut.Lock()
	defer re.mut.Unlock()

	for idx, existing := range re.rules {
		if existing.ID == rule.ID {
			re.rules[idx] = &rule
			return rule.ID
		}
	}
	re.rules = append(re.rules, &rule)

	return rule.ID
}

// Update applies the handler on the rule with the provided id. The id can not be changed.
func (re *ruleEvaluator) Update(id string, handler func(rule *common.ErrorRule)) common.OpResult {
	re.mut.Lock()
	defer re.mut.Unlock()

	for _, rule := range re.rules {
		if rule.ID != id {
			continue
		}

		handler(rule)
		rule.ID = id

		return common.Ok()
	}

	common.DiagnosticsLog.Debug("update on unknown rule", "rule", id)

	return common.Fail(common.ReasonUnknownRule)
}

// Delete removes the rule with the provided id
func (re *ruleEvaluator) Delete(id string) common.OpResult {
	re.mut.Lock()
	defer re.mut.Unlock()

	for idx, rule := range re.rules {
		if rule.ID != id {
			continue
		}

		re.rules = append(re.rules[:idx], re.rules[idx+1:]...)

		return common.Ok()
	}

	common.DiagnosticsLog.Debug("delete on unknown rule", "rule", id)

	return common.Fail(common.ReasonUnknownRule)
}

// Rules returns a copy of the rules in creation order
func (re *ruleEvaluator) Rules() []common.ErrorRule {
	re.mut.RLock()
	defer re.mut.RUnlock()

	result := make([]common.ErrorRule, 0, len(re.rules))
	for _, rule := range re.rules {
		result = append(result, cloneRule(*rule))
	}

	return result
}

// IsInterfaceNil returns true if the value under the interface is nil
func (re *ruleEvaluator) IsInterfaceNil() bool {
	return re == nil
}

func cloneRule(rule common.ErrorRule) common.ErrorRule {
	rule.NotificationChannels = append([]string(nil), rule.NotificationChannels...)

	return rule
}
