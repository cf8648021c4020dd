// Package service runs optimization tasks: it validates and scales requests,
// keeps a registry of tasks and drives each one through the orchestrator
// under a watchdog.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/metrics"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/report"
	"github.com/piwi3910/cutplan/internal/scale"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrTaskNotFound   = errors.New("task not found")
	// ErrServiceBusy is returned while the active task limit is reached.
	// Retrying later may succeed.
	ErrServiceBusy = errors.New("service busy")
)

type Service struct {
	cfg       config.ServiceConfig
	optimizer config.OptimizerConfig
	defaults  model.Configuration
	validate  *validator.Validate
	orch      *Orchestrator
	log       *zap.SugaredLogger

	mu    sync.RWMutex
	tasks map[string]*Task
	wg    sync.WaitGroup
}

func New(cfg *config.Config) (*Service, error) {
	defaults, err := cfg.Optimizer.Configuration()
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:       cfg.Service,
		optimizer: cfg.Optimizer,
		defaults:  defaults,
		validate:  validator.New(),
		orch:      NewOrchestrator(),
		log:       logger.For(logger.ComponentService),
		tasks:     make(map[string]*Task),
	}, nil
}

// Submit validates req, snapshots it and starts a task in the background.
func (s *Service) Submit(req model.Request) (*Task, error) {
	if err := s.validate.Struct(req); err != nil {
		metrics.TaskRejected("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var snapshot model.Request
	if err := deepcopy.Copy(&snapshot, req); err != nil {
		return nil, fmt.Errorf("copy request: %w", err)
	}
	s.optimizer.ApplyDefaults(&snapshot.Configuration)

	scaled, err := scale.Request(snapshot, s.defaults)
	if err != nil {
		metrics.TaskRejected("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	if active := s.activeLocked(); active >= s.cfg.MaxActiveTasks {
		s.mu.Unlock()
		metrics.TaskRejected("busy")
		return nil, fmt.Errorf("%w: %d tasks active", ErrServiceBusy, active)
	}
	t := newTask(uuid.NewString(), snapshot, scaled)
	if err := t.transition(model.StatusQueued); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.tasks[t.ID] = t
	metrics.SetActiveTasks(s.activeLocked())
	s.mu.Unlock()

	metrics.TaskSubmitted()
	s.log.Infof("task %s queued: %d panels, %d stock sheets", t.ID, len(scaled.Panels), len(scaled.Stock))

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.execute(t)
	}()
	go func() {
		defer s.wg.Done()
		NewWatchdog(scaled.Configuration.Performance.ThreadCheckInterval, s.cfg.TaskTimeout).Watch(t)
	}()
	return t, nil
}

func (s *Service) execute(t *Task) {
	defer close(t.done)
	defer s.refreshActive()

	if err := t.transition(model.StatusRunning); err != nil {
		// stopped or terminated while queued
		s.log.Debugf("task %s not started: %v", t.ID, err)
		return
	}

	err := s.orch.Run(t.ctx, t)
	switch {
	case err != nil:
		metrics.IncErrorCountAndLog(metrics.ComponentService, t.ID, err, s.log)
		t.fail(err)
	case t.ctx.Err() != nil:
		s.log.Infof("task %s ended as %s", t.ID, t.Status())
	default:
		if err := t.transition(model.StatusFinished); err != nil {
			s.log.Debugf("task %s not finished: %v", t.ID, err)
			return
		}
		s.log.Infof("task %s finished in %s", t.ID, t.Elapsed().Round(time.Millisecond))
	}
}

func (s *Service) activeLocked() int {
	n := 0
	for _, t := range s.tasks {
		if t.Status().IsActive() {
			n++
		}
	}
	return n
}

func (s *Service) refreshActive() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics.SetActiveTasks(s.activeLocked())
}

func (s *Service) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// Report builds the client response for a task from its best solutions so
// far. It can be called while the task is still running.
func (s *Service) Report(id string) (report.Response, error) {
	t, err := s.Get(id)
	if err != nil {
		return report.Response{}, err
	}
	conv := t.Converter()
	minOffcut, err := conv.ToFixed(s.optimizer.OffcutMinDimension)
	if err != nil {
		s.log.Warnf("ignoring offcut minimum %q: %v", s.optimizer.OffcutMinDimension, err)
		minOffcut = 0
	}
	return report.Build(report.Input{
		TaskID:             t.ID,
		Status:             t.Status(),
		Elapsed:            t.Elapsed(),
		Converter:          conv,
		Config:             t.Configuration(),
		Results:            t.Results(),
		Panels:             t.scaled.Panels,
		OffcutMinDimension: minOffcut,
	}), nil
}

// Stop ends a task and keeps the best solutions found so far.
func (s *Service) Stop(id string) error {
	return s.halt(id, model.StatusStopped)
}

// Terminate ends a task immediately.
func (s *Service) Terminate(id string) error {
	return s.halt(id, model.StatusTerminated)
}

func (s *Service) halt(id string, to model.Status) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := t.halt(to); err != nil {
		return err
	}
	s.log.Infof("task %s %s", t.ID, to)
	return nil
}

// List returns snapshots in display order: errors first, then running,
// queued and completed tasks; newest first within a status.
func (s *Service) List() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Status.DisplayRank(), out[j].Status.DisplayRank()
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cleanup removes completed tasks that ended before now minus the
// retention period and returns how many were removed.
func (s *Service) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, t := range s.tasks {
		ended := t.EndedAt()
		if !t.Status().IsCompleted() || ended.IsZero() || now.Sub(ended) < s.cfg.Retention {
			continue
		}
		delete(s.tasks, id)
		metrics.ForgetTask(id)
		removed++
	}
	if removed > 0 {
		s.log.Debugf("removed %d expired tasks", removed)
	}
	return removed
}

// Run removes expired tasks every cleanup interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Cleanup(now)
		}
	}
}

// Shutdown terminates every active task and waits for their goroutines or
// for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, t := range s.tasks {
		if t.Status().IsActive() {
			if err := t.halt(model.StatusTerminated); err != nil {
				s.log.Debugf("task %s: %v", t.ID, err)
			}
		}
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
