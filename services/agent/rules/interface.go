package rules

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// AlertSink receives the alerts produced by the rule evaluator
type AlertSink interface {
	Enqueue(alert common.AlertEvent)
	IsInterfaceNil() bool
}
