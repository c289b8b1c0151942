package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubyist/circuitbreaker"
)

const (
	defaultSendTimeout       = 10 * time.Second
	defaultBreakerThreshold  = 5
	defaultInitialBackoff    = 500 * time.Millisecond
	defaultMaxBackoff        = 5 * time.Second
	defaultAlertRetention    = 7 * 24 * time.Hour
	defaultMaxAlerts         = 10000
	breakerResetMultiplier   = 2
	notificationAttemptsName = "notification_attempts_total"
)

var log = logger.GetOrCreate("agent/dispatch")

// ArgsDispatcher is the DTO used to create a new alert dispatcher
type ArgsDispatcher struct {
	Clock                      clock.Clock
	Channels                   []Channel
	Observer                   AlertObserver
	Registerer                 prometheus.Registerer
	MaxRetries                 uint64
	InitialBackoff             time.Duration
	MaxBackoff                 time.Duration
	BreakerConsecutiveFailures int64
	SendTimeout                time.Duration
	AlertRetention             time.Duration
	MaxAlerts                  int
}

type dispatcher struct {
	clock          clock.Clock
	channels       map[string]Channel
	breakers       map[string]*circuit.Breaker
	observer       AlertObserver
	attempts       *prometheus.CounterVec
	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sendTimeout    time.Duration
	retention      time.Duration
	maxAlerts      int

	mutProcess sync.Mutex
	mut        sync.RWMutex
	queue      []*common.AlertEvent
	alerts     []*common.AlertEvent
}

// NewDispatcher creates a FIFO alert dispatcher with one circuit breaker per channel
func NewDispatcher(args ArgsDispatcher) (*dispatcher, error) {
	if args.Clock == nil {
		return nil, common.ErrNilClock
	}

	d := &dispatcher{
		clock:          args.Clock,
		channels:       make(map[string]Channel, len(args.Channels)),
		breakers:       make(map[string]*circuit.Breaker, len(args.Channels)),
		observer:       args.Observer,
		maxRetries:     args.MaxRetries,
		initialBackoff: valueOrDefault(args.InitialBackoff, defaultInitialBackoff),
		maxBackoff:     valueOrDefault(args.MaxBackoff, defaultMaxBackoff),
		sendTimeout:    valueOrDefault(args.SendTimeout, defaultSendTimeout),
		retention:      valueOrDefault(args.AlertRetention, defaultAlertRetention),
		maxAlerts:      args.MaxAlerts,
		queue:          make([]*common.AlertEvent, 0),
		alerts:         make([]*common.AlertEvent, 0),
	}
	if d.maxAlerts <= 0 {
		d.maxAlerts = defaultMaxAlerts
	}

	threshold := args.BreakerConsecutiveFailures
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}

	for idx, ch := range args.Channels {
		if check.IfNil(ch) {
			return nil, fmt.Errorf("%w at index %d", ErrNilChannel, idx)
		}
		name := ch.Name()
		_, exists := d.channels[name]
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatedChannel, name)
		}

		d.channels[name] = ch
		d.breakers[name] = d.createBreaker(threshold)
	}

	d.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: notificationAttemptsName,
		Help: "Number of alert notification attempts per channel and outcome",
	}, []string{"channel", "success"})
	if args.Registerer != nil {
		err := args.Registerer.Register(d.attempts)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", notificationAttemptsName, err)
		}
	}

	return d, nil
}

func (d *dispatcher) createBreaker(threshold int64) *circuit.Breaker {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = d.initialBackoff * breakerResetMultiplier
	bf.MaxInterval = d.maxBackoff * breakerResetMultiplier
	bf.MaxElapsedTime = 0
	bf.Reset()

	return circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    bf,
		ShouldTrip: circuit.ConsecutiveTripFunc(threshold),
	})
}

func valueOrDefault(value time.Duration, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}

	return value
}

// Enqueue appends the alert to the delivery queue and to the alert log
func (d *dispatcher) Enqueue(alert common.AlertEvent) {
	stored := alert.Clone()

	d.mut.Lock()
	d.queue = append(d.queue, &stored)
	d.alerts = append(d.alerts, &stored)
	d.trimAlerts()
	d.mut.Unlock()

	log.Trace("alert enqueued", "id", alert.ID, "rule", alert.RuleID, "channels", len(alert.Channels))
}

// trimAlerts drops the oldest delivered alerts above the cap. Pending alerts are never dropped.
func (d *dispatcher) trimAlerts() {
	excess := len(d.alerts) - d.maxAlerts
	if excess <= 0 {
		return
	}

	kept := make([]*common.AlertEvent, 0, len(d.alerts))
	for _, alert := range d.alerts {
		if excess > 0 && alert.Notified {
			excess--
			continue
		}
		kept = append(kept, alert)
	}
	d.alerts = kept
}

// Process drains the whole queue, one alert at a time, attempting each alert channel in declaration order
func (d *dispatcher) Process(ctx context.Context) {
	d.mutProcess.Lock()
	defer d.mutProcess.Unlock()

	numProcessed := 0
	for ctx.Err() == nil {
		alert := d.pop()
		if alert == nil {
			break
		}

		d.deliver(ctx, alert)
		numProcessed++
	}

	if numProcessed > 0 {
		log.Debug("processed alerts", "count", numProcessed, "pending", d.Pending())
	}
}

func (d *dispatcher) pop() *common.AlertEvent {
	d.mut.Lock()
	defer d.mut.Unlock()

	if len(d.queue) == 0 {
		return nil
	}

	alert := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]

	return alert
}

func (d *dispatcher) deliver(ctx context.Context, alert *common.AlertEvent) {
	d.mut.RLock()
	channels := append([]string(nil), alert.Channels...)
	snapshot := alert.Clone()
	d.mut.RUnlock()

	for _, name := range channels {
		err := d.attempt(ctx, name, snapshot)
		success := err == nil

		attempt := common.NotificationAttempt{
			Channel:   name,
			Timestamp: common.ToMillis(d.clock.Now()),
			Success:   success,
		}
		if err != nil {
			attempt.Error = err.Error()
			log.Warn("notification failed", "alert", alert.ID, "channel", name, "error", err)
		}
		d.attempts.WithLabelValues(name, strconv.FormatBool(success)).Inc()

		d.mut.Lock()
		alert.Notifications = append(alert.Notifications, attempt)
		d.mut.Unlock()
	}

	d.mut.Lock()
	alert.Notified = true
	notified := alert.Clone()
	d.mut.Unlock()

	if !check.IfNil(d.observer) {
		d.observer.OnAlertNotified(notified)
	}
}

func (d *dispatcher) attempt(ctx context.Context, name string, alert common.AlertEvent) error {
	ch, found := d.channels[name]
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}

	breaker := d.breakers[name]
	if breaker.Tripped() {
		log.Debug("circuit tripped", "channel", name, "consecutive failures", breaker.ConsecFailures())
	}

	err := breaker.Call(func() error {
		return d.sendWithRetry(ctx, ch, alert)
	}, 0)
	if errors.Is(err, circuit.ErrBreakerOpen) {
		return ErrCircuitOpen
	}

	return err
}

func (d *dispatcher) sendWithRetry(ctx context.Context, ch Channel, alert common.AlertEvent) error {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = d.initialBackoff
	bf.MaxInterval = d.maxBackoff
	bf.MaxElapsedTime = 0

	operation := func() error {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()

		err := ch.Send(sendCtx, alert)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bf, d.maxRetries), ctx)

	return backoff.Retry(operation, policy)
}

// Pending returns the number of alerts waiting for delivery
func (d *dispatcher) Pending() int {
	d.mut.RLock()
	defer d.mut.RUnlock()

	return len(d.queue)
}

// Alerts returns a copy of the alert log in enqueue order
func (d *dispatcher) Alerts() []common.AlertEvent {
	d.mut.RLock()
	defer d.mut.RUnlock()

	result := make([]common.AlertEvent, 0, len(d.alerts))
	for _, alert := range d.alerts {
		result = append(result, alert.Clone())
	}

	return result
}

// Cleanup removes the delivered alerts older than the retention window and returns how many were removed
func (d *dispatcher) Cleanup(now time.Time) int {
	cutoff := common.ToMillis(now.Add(-d.retention))

	d.mut.Lock()
	defer d.mut.Unlock()

	kept := make([]*common.AlertEvent, 0, len(d.alerts))
	for _, alert := range d.alerts {
		if alert.Notified && alert.Timestamp < cutoff {
			continue
		}
		kept = append(kept, alert)
	}

	removed := len(d.alerts) - len(kept)
	d.alerts = kept

	return removed
}

// BreakerTripped returns true if the circuit breaker of the named channel is open
func (d *dispatcher) BreakerTripped(channel string) bool {
	breaker, found := d.breakers[channel]
	if !found {
		return false
	}

	return breaker.Tripped()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (d *dispatcher) IsInterfaceNil() bool {
	return d == nil
}
