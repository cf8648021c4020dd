package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestWatchdog_StopsTaskAfterTimeout(t *testing.T) {
	task := runningTask(t, simpleRequest())
	w := NewWatchdog(time.Millisecond, 5*time.Millisecond)

	returned := make(chan struct{})
	go func() {
		w.Watch(task)
		close(returned)
	}()

	require.Eventually(t, func() bool {
		return task.Status() == model.StatusStopped
	}, 5*time.Second, time.Millisecond)
	assert.Error(t, task.ctx.Err())

	close(task.done)
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog did not return after the task ended")
	}
}

func TestWatchdog_LeavesFastTasksAlone(t *testing.T) {
	task := runningTask(t, simpleRequest())
	w := NewWatchdog(time.Millisecond, time.Hour)

	w.check(task)

	assert.Equal(t, model.StatusRunning, task.Status())
	assert.NoError(t, task.ctx.Err())
}

func TestWatchdog_DefaultInterval(t *testing.T) {
	w := NewWatchdog(0, time.Minute)

	assert.Equal(t, time.Second, w.interval)
}
