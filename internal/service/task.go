package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/metrics"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/scale"
)

// DefaultKeepSolutions is how many ranked solutions a task keeps per
// material.
const DefaultKeepSolutions = 5

// Task is one submitted optimization job. Status changes go through a
// looplab/fsm machine built from model.StatusTransitions; everything else
// the workers touch is guarded by mu.
type Task struct {
	ID        string
	ClientID  string
	CreatedAt time.Time

	request model.Request
	scaled  scale.ScaledRequest
	ids     *model.IDSource
	compare engine.Comparator
	keep    int
	log     *zap.SugaredLogger

	ctx    context.Context //nolint:containedctx // cancelled by Stop and Terminate
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	machine   *fsm.FSM
	startedAt time.Time
	endedAt   time.Time
	err       error
	materials map[string]*materialState
}

type materialState struct {
	best   []*model.Solution
	total  int
	done   int
	failed int
	groups map[string]int
}

// newStatusMachine builds one event per target status; the event name is
// the target's name.
func newStatusMachine(callbacks fsm.Callbacks) *fsm.FSM {
	sources := make(map[model.Status][]string)
	for from, targets := range model.StatusTransitions {
		for _, to := range targets {
			sources[to] = append(sources[to], from.String())
		}
	}
	events := make([]fsm.EventDesc, 0, len(sources))
	for to, src := range sources {
		sort.Strings(src)
		events = append(events, fsm.EventDesc{Name: to.String(), Src: src, Dst: to.String()})
	}
	return fsm.NewFSM(model.StatusIdle.String(), events, callbacks)
}

func newTask(id string, req model.Request, scaled scale.ScaledRequest) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		ID:        id,
		ClientID:  req.ClientID,
		CreatedAt: time.Now(),
		request:   req,
		scaled:    scaled,
		ids:       model.NewIDSource(),
		compare:   engine.NewComparator(scaled.Configuration.Priority),
		keep:      DefaultKeepSolutions,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		materials: make(map[string]*materialState),
	}
	t.log = logger.For(logger.ComponentTask).With("task", id)
	t.machine = newStatusMachine(fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			metrics.ObserveTransition(e.Dst)
			t.log.Debugf("status %s -> %s", e.Src, e.Dst)
		},
	})
	return t
}

func (t *Task) Status() model.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Task) statusLocked() model.Status {
	s, err := model.ParseStatus(t.machine.Current())
	if err != nil {
		// the machine only knows names produced by model.Status
		panic(err)
	}
	return s
}

// transition moves the task to status to. A self transition is a no-op.
func (t *Task) transition(to model.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(to)
}

func (t *Task) transitionLocked(to model.Status) error {
	from := t.statusLocked()
	if from == to {
		return nil
	}
	if err := t.machine.Event(context.Background(), to.String()); err != nil {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}
	switch {
	case to == model.StatusRunning:
		t.startedAt = time.Now()
	case to.IsCompleted():
		t.endedAt = time.Now()
	}
	return nil
}

// halt moves the task to Stopped or Terminated and cancels its workers.
func (t *Task) halt(to model.Status) error {
	if err := t.transition(to); err != nil {
		return err
	}
	t.cancel()
	return nil
}

// fail records err and moves the task to Error.
func (t *Task) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
	if terr := t.transitionLocked(model.StatusError); terr != nil {
		t.log.Warnf("cannot record failure %v: %v", err, terr)
	}
}

func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed once the task's execution has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Request returns the snapshot taken at submission.
func (t *Task) Request() model.Request {
	return t.request
}

func (t *Task) Configuration() model.Configuration {
	return t.scaled.Configuration
}

func (t *Task) Converter() scale.Converter {
	return t.scaled.Converter
}

// Elapsed is the running time so far, or the full run time once ended.
func (t *Task) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked(time.Now())
}

func (t *Task) elapsedLocked(now time.Time) time.Duration {
	switch {
	case t.startedAt.IsZero():
		return 0
	case !t.endedAt.IsZero():
		return t.endedAt.Sub(t.startedAt)
	}
	return now.Sub(t.startedAt)
}

// EndedAt is zero until the task reaches a completed status.
func (t *Task) EndedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endedAt
}

func (t *Task) state(material string) *materialState {
	st, ok := t.materials[material]
	if !ok {
		st = &materialState{groups: make(map[string]int)}
		t.materials[material] = st
	}
	return st
}

// expect adds n scheduled units to a material's total.
func (t *Task) expect(material string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(material).total += n
}

// unitDone counts a finished unit under the lead group of its ordering.
func (t *Task) unitDone(material, lead string, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(material)
	st.done++
	st.groups[lead]++
	if failed {
		st.failed++
	}
}

// skipUnits marks n units that will never run as done.
func (t *Task) skipUnits(material string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(material).done += n
}

// offer ranks sol into the material's solution set and reports whether it
// became the best one.
func (t *Task) offer(material string, sol *model.Solution) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(material)
	st.best = append(st.best, sol)
	t.compare.Sort(st.best)
	if len(st.best) > t.keep {
		st.best[t.keep] = nil
		st.best = st.best[:t.keep]
	}
	return st.best[0] == sol
}

// Best returns the best solution found for material so far.
func (t *Task) Best(material string) *model.Solution {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.materials[material]
	if !ok || len(st.best) == 0 {
		return nil
	}
	return st.best[0]
}

// Ranked returns the kept solutions of material, best first.
func (t *Task) Ranked(material string) []*model.Solution {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.materials[material]
	if !ok {
		return nil
	}
	return append([]*model.Solution(nil), st.best...)
}

// Results maps every material to its best solution.
func (t *Task) Results() map[string]*model.Solution {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*model.Solution, len(t.materials))
	for m, st := range t.materials {
		if len(st.best) > 0 {
			out[m] = st.best[0]
		}
	}
	return out
}

// PercentDone combines completed work and elapsed time. A finished task is
// always at 100.
func (t *Task) PercentDone() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusLocked() == model.StatusFinished {
		return 100
	}
	var done, total int
	for _, st := range t.materials {
		done += st.done
		total += st.total
	}
	return percentDone(done, total, t.elapsedLocked(time.Now()))
}

// MaterialProgress is the per-material view of a task.
type MaterialProgress struct {
	Material       string         `json:"material"`
	Done           int            `json:"done"`
	Total          int            `json:"total"`
	Failed         int            `json:"failed"`
	Groups         map[string]int `json:"groups,omitempty"`
	BestEfficiency float64        `json:"best_efficiency"`
}

// Snapshot is a consistent, copy-only view of a task.
type Snapshot struct {
	ID          string             `json:"id"`
	ClientID    string             `json:"client_id,omitempty"`
	Status      model.Status       `json:"status"`
	PercentDone int                `json:"percent_done"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   time.Time          `json:"started_at,omitzero"`
	EndedAt     time.Time          `json:"ended_at,omitzero"`
	Elapsed     time.Duration      `json:"elapsed"`
	Error       string             `json:"error,omitempty"`
	Materials   []MaterialProgress `json:"materials"`
}

func (t *Task) Snapshot() Snapshot {
	pct := t.PercentDone()

	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		ID:          t.ID,
		ClientID:    t.ClientID,
		Status:      t.statusLocked(),
		PercentDone: pct,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.startedAt,
		EndedAt:     t.endedAt,
		Elapsed:     t.elapsedLocked(time.Now()),
		Materials:   make([]MaterialProgress, 0, len(t.materials)),
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	for m, st := range t.materials {
		mp := MaterialProgress{
			Material: m,
			Done:     st.done,
			Total:    st.total,
			Failed:   st.failed,
			Groups:   make(map[string]int, len(st.groups)),
		}
		for g, n := range st.groups {
			mp.Groups[g] = n
		}
		if len(st.best) > 0 {
			mp.BestEfficiency = st.best[0].Stats().Efficiency()
		}
		s.Materials = append(s.Materials, mp)
	}
	sort.Slice(s.Materials, func(i, j int) bool {
		return s.Materials[i].Material < s.Materials[j].Material
	})
	return s
}
