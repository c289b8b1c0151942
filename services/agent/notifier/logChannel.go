package notifier

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

// LogChannelName is the name under which the log channel is registered
const LogChannelName = "log"

var log = logger.GetOrCreate("agent/notifier")

type logChannel struct{}

// NewLogChannel creates a channel that writes the alerts in the process log
func NewLogChannel() *logChannel {
	return &logChannel{}
}

// Name returns the channel name
func (lc *logChannel) Name() string {
	return LogChannelName
}

// Send logs the alert. It never fails.
func (lc *logChannel) Send(_ context.Context, alert common.AlertEvent) error {
	log.Warn("alert raised",
		"id", alert.ID,
		"rule", alert.RuleID,
		"severity", alert.Severity,
		"message", alert.Message,
	)

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (lc *logChannel) IsInterfaceNil() bool {
	return lc == nil
}
