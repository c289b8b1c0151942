package engine

import (
	"sync"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

// outbox accumulates what changed since the last report: new samples, touched error records and notified alerts
type outbox struct {
	maxEntries int

	mut        sync.Mutex
	samples    []common.MetricSample
	errors     map[string]common.ErrorRecord
	errorOrder []string
	alerts     []common.AlertEvent
}

func newOutbox(maxEntries int) *outbox {
	return &outbox{
		maxEntries: maxEntries,
		samples:    make([]common.MetricSample, 0),
		errors:     make(map[string]common.ErrorRecord),
		errorOrder: make([]string, 0),
		alerts:     make([]common.AlertEvent, 0),
	}
}

// OnSample queues a kept metric sample
func (o *outbox) OnSample(sample common.MetricSample) {
	sample.Tags = common.CloneStrings(sample.Tags)
	sample.Context = common.CloneValues(sample.Context)

	o.mut.Lock()
	o.samples = append(o.samples, sample)
	if len(o.samples) > o.maxEntries {
		o.samples = append(o.samples[:0:0], o.samples[len(o.samples)-o.maxEntries:]...)
	}
	o.mut.Unlock()
}

// OnRecord queues the latest state of a created or updated error record
func (o *outbox) OnRecord(record common.ErrorRecord) {
	o.mut.Lock()
	defer o.mut.Unlock()

	_, exists := o.errors[record.ID]
	if !exists {
		if len(o.errorOrder) >= o.maxEntries {
			delete(o.errors, o.errorOrder[0])
			o.errorOrder = o.errorOrder[1:]
		}
		o.errorOrder = append(o.errorOrder, record.ID)
	}
	o.errors[record.ID] = record.Clone()
}

// OnResolution queues the record after a resolve or reopen, replacing any pending occurrence update
func (o *outbox) OnResolution(record common.ErrorRecord) {
	o.OnRecord(record)
}

// OnAlertNotified queues an alert that went through all its channels
func (o *outbox) OnAlertNotified(alert common.AlertEvent) {
	o.mut.Lock()
	o.alerts = append(o.alerts, alert.Clone())
	if len(o.alerts) > o.maxEntries {
		o.alerts = append(o.alerts[:0:0], o.alerts[len(o.alerts)-o.maxEntries:]...)
	}
	o.mut.Unlock()
}

// Drain returns everything queued so far and empties the outbox
func (o *outbox) Drain(agent string) common.Batch {
	o.mut.Lock()
	defer o.mut.Unlock()

	batch := common.Batch{
		Agent:   agent,
		Samples: o.samples,
		Alerts:  o.alerts,
		Errors:  make([]common.ErrorRecord, 0, len(o.errorOrder)),
	}
	for _, id := range o.errorOrder {
		batch.Errors = append(batch.Errors, o.errors[id])
	}

	o.samples = make([]common.MetricSample, 0)
	o.errors = make(map[string]common.ErrorRecord)
	o.errorOrder = make([]string, 0)
	o.alerts = make([]common.AlertEvent, 0)

	return batch
}

// IsInterfaceNil returns true if the value under the interface is nil
func (o *outbox) IsInterfaceNil() bool {
	return o == nil
}
