package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestTask_StatusMachineMatchesTable(t *testing.T) {
	for _, from := range model.AllStatuses {
		for _, to := range model.AllStatuses {
			task := newTestTask(t, simpleRequest())
			task.machine.SetState(from.String())

			err := task.transition(to)

			if from.CanTransitionTo(to) {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, task.Status())
			} else {
				require.ErrorIs(t, err, model.ErrInvalidTransition, "%s -> %s", from, to)
				assert.Contains(t, err.Error(), from.String())
				assert.Contains(t, err.Error(), to.String())
				assert.Equal(t, from, task.Status())
			}
		}
	}
}

func TestTask_TransitionTimestamps(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	assert.Equal(t, model.StatusIdle, task.Status())
	assert.Zero(t, task.Elapsed())

	require.NoError(t, task.transition(model.StatusQueued))
	require.NoError(t, task.transition(model.StatusRunning))
	assert.True(t, task.EndedAt().IsZero())

	require.NoError(t, task.transition(model.StatusFinished))
	assert.False(t, task.EndedAt().IsZero())

	first := task.Elapsed()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, first, task.Elapsed(), "elapsed freezes once the task ended")
}

func TestTask_HaltCancelsContext(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	require.NoError(t, task.transition(model.StatusQueued))

	require.NoError(t, task.halt(model.StatusTerminated))

	assert.Error(t, task.ctx.Err())
	assert.Equal(t, model.StatusTerminated, task.Status())
	assert.ErrorIs(t, task.halt(model.StatusStopped), model.ErrInvalidTransition)
}

func TestTask_FailRecordsError(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	require.NoError(t, task.transition(model.StatusQueued))

	task.fail(assert.AnError)

	assert.Equal(t, model.StatusError, task.Status())
	assert.ErrorIs(t, task.Err(), assert.AnError)
	assert.Equal(t, assert.AnError.Error(), task.Snapshot().Error)
}

func TestTask_OfferKeepsBestRanked(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	task.keep = 2

	worse := solutionWithWaste(task, 400)
	better := solutionWithWaste(task, 100)
	best := solutionWithWaste(task, 0)

	assert.True(t, task.offer("", worse))
	assert.True(t, task.offer("", better))
	assert.False(t, task.offer("", solutionWithWaste(task, 900)))
	assert.True(t, task.offer("", best))

	ranked := task.Ranked("")
	require.Len(t, ranked, 2)
	assert.Same(t, best, ranked[0])
	assert.Same(t, better, ranked[1])
	assert.Same(t, best, task.Best(""))
	assert.Same(t, best, task.Results()[""])
	assert.Nil(t, task.Best("oak"))
}

func TestTask_ProgressCounters(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	require.NoError(t, task.transition(model.StatusQueued))
	require.NoError(t, task.transition(model.StatusRunning))

	task.expect("oak", 4)
	task.unitDone("oak", "50x50#0", false)
	task.unitDone("oak", "50x50#0", true)
	task.unitDone("oak", "100x20#0", false)

	snap := task.Snapshot()
	require.Len(t, snap.Materials, 1)
	mp := snap.Materials[0]
	assert.Equal(t, "oak", mp.Material)
	assert.Equal(t, 3, mp.Done)
	assert.Equal(t, 4, mp.Total)
	assert.Equal(t, 1, mp.Failed)
	assert.Equal(t, map[string]int{"50x50#0": 2, "100x20#0": 1}, mp.Groups)
	assert.Equal(t, 75, snap.PercentDone)

	require.NoError(t, task.transition(model.StatusFinished))
	assert.Equal(t, 100, task.PercentDone())
}

func TestTask_SkipUnitsCompletesMaterial(t *testing.T) {
	task := newTestTask(t, simpleRequest())
	require.NoError(t, task.transition(model.StatusQueued))
	require.NoError(t, task.transition(model.StatusRunning))

	task.expect("oak", 6)
	task.expect("pine", 2)
	task.unitDone("oak", "50x50#0", false)
	task.unitDone("oak", "50x50#0", false)
	assert.Equal(t, 25, task.PercentDone())

	task.skipUnits("oak", 4)
	mp := task.Snapshot().Materials[0]
	assert.Equal(t, "oak", mp.Material)
	assert.Equal(t, 6, mp.Done)
	assert.Equal(t, 6, mp.Total)
	assert.Equal(t, 2, mp.Groups["50x50#0"])
	assert.Equal(t, 75, task.PercentDone())
}

func TestPercentDone(t *testing.T) {
	tests := []struct {
		name        string
		done, total int
		elapsed     time.Duration
		want        int
	}{
		{"nothing scheduled", 0, 0, 0, 0},
		{"half the work", 5, 10, time.Second, 50},
		{"clock ahead of work", 1, 10, 5 * time.Minute, 50},
		{"past the horizon", 1, 10, time.Hour, 100},
		{"all done", 10, 10, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentDone(tt.done, tt.total, tt.elapsed))
		})
	}
}

// solutionWithWaste builds a frozen one-sheet solution holding one panel and
// leaving waste units of area unused.
func solutionWithWaste(task *Task, waste int64) *model.Solution {
	ids := task.ids
	sheet := model.NewTileDimensions(100, 100, 100+waste/100, "", "")
	sol := model.NewSolution(ids, "", model.NewStockSolution(sheet))
	m := model.NewMosaic(ids, sol.TakeStock(0))
	if waste == 0 {
		m.Root.Final = true
		m.Root.ExternalID = 1
	} else {
		root := m.Root
		root.Child1 = model.NewTileNode(ids, 0, 0, 100, 100)
		root.Child2 = model.NewTileNode(ids, 0, 100, 100, root.Y2)
		root.Child1.Final = true
		root.Child1.ExternalID = 1
	}
	sol.AddMosaic(m)
	return sol.Freeze()
}
