package commonGo

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriodicTask(t *testing.T) {
	t.Parallel()

	t.Run("invalid interval should error", func(t *testing.T) {
		task, err := NewPeriodicTask("test", 0, func(ctx context.Context) {})
		assert.Nil(t, task)
		assert.Equal(t, ErrInvalidInterval, err)
	})
	t.Run("nil handler should error", func(t *testing.T) {
		task, err := NewPeriodicTask("test", time.Second, nil)
		assert.Nil(t, task)
		assert.Equal(t, ErrNilHandler, err)
	})
	t.Run("should work", func(t *testing.T) {
		task, err := NewPeriodicTask("test", time.Second, func(ctx context.Context) {})
		assert.Nil(t, err)
		assert.Equal(t, "test", task.Name())
		assert.False(t, task.IsRunning())
	})
}

func TestPeriodicTask_StartStop(t *testing.T) {
	t.Parallel()

	numCalls := uint32(0)
	task, err := NewPeriodicTask("test", 10*time.Millisecond, func(ctx context.Context) {
		atomic.AddUint32(&numCalls, 1)
	})
	require.Nil(t, err)

	task.Start(context.Background())
	task.Start(context.Background()) // second start is a no-op
	assert.True(t, task.IsRunning())

	time.Sleep(55 * time.Millisecond)
	task.Stop()
	assert.False(t, task.IsRunning())

	callsAfterStop := atomic.LoadUint32(&numCalls)
	assert.GreaterOrEqual(t, callsAfterStop, uint32(2))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, callsAfterStop, atomic.LoadUint32(&numCalls))

	// stopping twice is safe
	task.Stop()
}

func TestPeriodicTask_ParentContextCancel(t *testing.T) {
	t.Parallel()

	numCalls := uint32(0)
	task, _ := NewPeriodicTask("test", 5*time.Millisecond, func(ctx context.Context) {
		atomic.AddUint32(&numCalls, 1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	task.Start(ctx)
	cancel()
	time.Sleep(20 * time.Millisecond)

	calls := atomic.LoadUint32(&numCalls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadUint32(&numCalls))

	task.Stop()
}
