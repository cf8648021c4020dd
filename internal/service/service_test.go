package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/scale"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{
			MaxActiveTasks:  4,
			TaskTimeout:     time.Minute,
			Retention:       time.Hour,
			CleanupInterval: time.Minute,
		},
		Optimizer: config.OptimizerConfig{
			CutThickness:           "0",
			MinTrimDimension:       "0",
			OptimizationLevel:      "fast",
			Priority:               "material_efficiency",
			SplitPolicy:            "both",
			MaxSimultaneousTasks:   2,
			MaxSimultaneousThreads: 2,
			ThreadCheckInterval:    10 * time.Millisecond,
		},
	}
}

func panelInput(id int, w, h string, count int, material string) model.PanelInput {
	return model.PanelInput{ID: id, Width: w, Height: h, Count: count, Material: material}
}

// simpleRequest fits four 50x50 panels exactly on one 100x100 sheet.
func simpleRequest() model.Request {
	return model.Request{
		Panels: []model.PanelInput{panelInput(1, "50", "50", 4, "")},
		Stock:  []model.PanelInput{panelInput(100, "100", "100", 2, "")},
		Configuration: model.ConfigurationInput{
			OptimizationLevel: "fast",
		},
	}
}

func newTestTask(t *testing.T, req model.Request) *Task {
	t.Helper()
	defaults, err := testConfig().Optimizer.Configuration()
	require.NoError(t, err)
	scaled, err := scale.Request(req, defaults)
	require.NoError(t, err)
	task := newTask(uuid.NewString(), req, scaled)
	t.Cleanup(task.cancel)
	return task
}

func newTestService(t *testing.T, mutate ...func(*config.Config)) *Service {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("task %s did not finish", task.ID)
	}
}

// queue registers a task that never executes, occupying an active slot.
func queue(t *testing.T, s *Service, req model.Request) *Task {
	t.Helper()
	task := newTestTask(t, req)
	require.NoError(t, task.transition(model.StatusQueued))
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()
	return task
}

func TestService_SubmitRunsToFinished(t *testing.T) {
	s := newTestService(t)

	task, err := s.Submit(simpleRequest())
	require.NoError(t, err)
	waitDone(t, task)

	assert.Equal(t, model.StatusFinished, task.Status())
	assert.Equal(t, 100, task.PercentDone())
	best := task.Best("")
	require.NotNil(t, best)
	st := best.Stats()
	assert.Equal(t, 4, st.PlacedPanels)
	assert.True(t, st.IsPerfect())

	got, err := s.Get(task.ID)
	require.NoError(t, err)
	assert.Same(t, task, got)
}

func TestService_SubmitRejectsInvalidRequests(t *testing.T) {
	s := newTestService(t)
	tests := []struct {
		name string
		req  model.Request
	}{
		{"no panels", model.Request{Stock: simpleRequest().Stock}},
		{"no stock", model.Request{Panels: simpleRequest().Panels}},
		{"width not numeric", model.Request{
			Panels: []model.PanelInput{panelInput(1, "wide", "10", 1, "")},
			Stock:  simpleRequest().Stock,
		}},
		{"negative height", model.Request{
			Panels: []model.PanelInput{panelInput(1, "10", "-10", 1, "")},
			Stock:  simpleRequest().Stock,
		}},
		{"all panels disabled", model.Request{
			Panels: []model.PanelInput{panelInput(1, "10", "10", 0, "")},
			Stock:  simpleRequest().Stock,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Submit(tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, s.List())
}

func TestService_SubmitSnapshotsRequest(t *testing.T) {
	s := newTestService(t)
	req := simpleRequest()

	task, err := s.Submit(req)
	require.NoError(t, err)
	req.Panels[0].Width = "999"
	waitDone(t, task)

	assert.Equal(t, "50", task.Request().Panels[0].Width)
	assert.Equal(t, "0", task.Request().Configuration.CutThickness, "defaults are applied to the snapshot")
}

func TestService_SubmitWhenBusy(t *testing.T) {
	s := newTestService(t, func(c *config.Config) { c.Service.MaxActiveTasks = 1 })
	queue(t, s, simpleRequest())

	_, err := s.Submit(simpleRequest())

	assert.ErrorIs(t, err, ErrServiceBusy)
}

func TestService_StopAndTerminate(t *testing.T) {
	s := newTestService(t)
	stopped := queue(t, s, simpleRequest())
	terminated := queue(t, s, simpleRequest())

	require.NoError(t, s.Stop(stopped.ID))
	require.NoError(t, s.Terminate(terminated.ID))

	assert.Equal(t, model.StatusStopped, stopped.Status())
	assert.Equal(t, model.StatusTerminated, terminated.Status())
	assert.NoError(t, s.Stop(stopped.ID), "self transition is a no-op")
	assert.ErrorIs(t, s.Terminate(stopped.ID), model.ErrInvalidTransition)
	assert.ErrorIs(t, s.Stop("missing"), ErrTaskNotFound)
}

func TestService_ExecuteSkipsHaltedTask(t *testing.T) {
	s := newTestService(t)
	task := queue(t, s, simpleRequest())
	require.NoError(t, s.Stop(task.ID))

	s.execute(task)

	waitDone(t, task)
	assert.Equal(t, model.StatusStopped, task.Status())
	assert.Empty(t, task.Results())
}

func TestService_GetUnknown(t *testing.T) {
	s := newTestService(t)

	_, err := s.Get("nope")

	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestService_ListDisplayOrder(t *testing.T) {
	s := newTestService(t)
	queued := queue(t, s, simpleRequest())
	failed := queue(t, s, simpleRequest())
	failed.fail(assert.AnError)
	stopped := queue(t, s, simpleRequest())
	require.NoError(t, stopped.halt(model.StatusStopped))

	list := s.List()

	require.Len(t, list, 3)
	assert.Equal(t, failed.ID, list[0].ID)
	assert.Equal(t, queued.ID, list[1].ID)
	assert.Equal(t, stopped.ID, list[2].ID)
}

func TestService_CleanupRemovesExpiredTasks(t *testing.T) {
	s := newTestService(t, func(c *config.Config) { c.Service.Retention = time.Minute })
	active := queue(t, s, simpleRequest())
	done := queue(t, s, simpleRequest())
	require.NoError(t, done.halt(model.StatusStopped))

	assert.Zero(t, s.Cleanup(time.Now()))
	assert.Equal(t, 1, s.Cleanup(time.Now().Add(2*time.Minute)))

	_, err := s.Get(done.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.Get(active.ID)
	assert.NoError(t, err)
}

func TestService_ShutdownTerminatesActiveTasks(t *testing.T) {
	s := newTestService(t)
	task := queue(t, s, simpleRequest())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Equal(t, model.StatusTerminated, task.Status())
}

func TestService_RunStopsWithContext(t *testing.T) {
	s := newTestService(t, func(c *config.Config) { c.Service.CleanupInterval = time.Millisecond })
	ctx, cancel := context.WithCancel(t.Context())

	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestService_Report(t *testing.T) {
	s := newTestService(t, func(c *config.Config) { c.Optimizer.OffcutMinDimension = "10" })
	req := simpleRequest()
	req.Panels[0].Count = 3
	req.Panels[0].Label = "door"

	task, err := s.Submit(req)
	require.NoError(t, err)
	waitDone(t, task)

	resp, err := s.Report(task.ID)
	require.NoError(t, err)

	assert.Equal(t, task.ID, resp.TaskID)
	assert.Equal(t, model.StatusFinished, resp.Status)
	assert.Equal(t, 3, resp.Summary.PlacedPanels)
	assert.InDelta(t, 7500.0, resp.Summary.UsedArea, 1e-9)
	require.Len(t, resp.Materials, 1)
	sheet := resp.Materials[0].Sheets[0]
	assert.Equal(t, "door", sheet.Panels[0].Label)
	require.Len(t, sheet.Offcuts, 1)
	assert.InDelta(t, 50.0, sheet.Offcuts[0].Width, 1e-9)

	_, err = s.Report("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
