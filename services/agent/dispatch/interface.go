package dispatch

import (
	"context"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// Channel defines a notification channel able to deliver an alert
type Channel interface {
	Name() string
	Send(ctx context.Context, alert common.AlertEvent) error
	IsInterfaceNil() bool
}

// AlertObserver is notified after an alert went through all its channels
type AlertObserver interface {
	OnAlertNotified(alert common.AlertEvent)
	IsInterfaceNil() bool
}
