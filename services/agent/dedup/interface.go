package dedup

import "github.com/iulianpascalau/telemetry-monitoring/services/agent/common"

// RecordObserver is notified after every error record creation or update
type RecordObserver interface {
	OnRecord(record common.ErrorRecord)
	IsInterfaceNil() bool
}

// ResolutionObserver is an optional RecordObserver extension notified when a record is resolved or reopened.
// Observers not implementing it only see occurrences, so resolution changes never re-run the alert rules.
type ResolutionObserver interface {
	OnResolution(record common.ErrorRecord)
}
