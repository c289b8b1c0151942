package commonGo

import (
	"context"
	"errors"
	"sync"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("commonGo")

// ErrInvalidInterval signals a non-positive task interval
var ErrInvalidInterval = errors.New("invalid task interval")

// ErrNilHandler signals a nil task handler
var ErrNilHandler = errors.New("nil task handler")

// PeriodicTask is a cancellable handle over a handler that is called at a fixed interval.
// The handler is called once right after Start and then every interval until Stop is called.
type PeriodicTask struct {
	name     string
	interval time.Duration
	handler  func(ctx context.Context)

	mutCancel sync.Mutex
	cancel    func()
	wg        sync.WaitGroup
}

// NewPeriodicTask creates a new stopped periodic task
func NewPeriodicTask(name string, interval time.Duration, handler func(ctx context.Context)) (*PeriodicTask, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	return &PeriodicTask{
		name:     name,
		interval: interval,
		handler:  handler,
	}, nil
}

// Start launches the go routine. Calling Start on a running task does nothing.
func (task *PeriodicTask) Start(ctx context.Context) {
	task.mutCancel.Lock()
	defer task.mutCancel.Unlock()

	if task.cancel != nil {
		return
	}

	var runCtx context.Context
	runCtx, task.cancel = context.WithCancel(ctx)

	task.wg.Add(1)
	go func() {
		defer task.wg.Done()
		CronJobStarter(runCtx, task.handler, task.interval)
	}()

	log.Debug("periodic task started", "name", task.name, "interval", task.interval)
}

// Stop cancels the task and waits for the in-flight handler call to return
func (task *PeriodicTask) Stop() {
	task.mutCancel.Lock()
	cancel := task.cancel
	task.cancel = nil
	task.mutCancel.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	task.wg.Wait()

	log.Debug("periodic task stopped", "name", task.name)
}

// IsRunning returns true if the task was started and not yet stopped
func (task *PeriodicTask) IsRunning() bool {
	task.mutCancel.Lock()
	defer task.mutCancel.Unlock()

	return task.cancel != nil
}

// Name returns the task name
func (task *PeriodicTask) Name() string {
	return task.name
}

// CronJobStarter periodically calls the provided handler, blocking until the context is done. The time between
// calls is provided as timeToCall
func CronJobStarter(ctx context.Context, handler func(ctx context.Context), timeToCall time.Duration) {
	timer := time.NewTimer(timeToCall)
	defer timer.Stop()

	handler(ctx)

	for {
		select {
		case <-timer.C:
			handler(ctx)
			timer.Reset(timeToCall)
		case <-ctx.Done():
			return
		}
	}
}
