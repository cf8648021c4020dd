package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/metrics"
	"github.com/piwi3910/cutplan/internal/model"
)

// Orchestrator schedules the placement runs of a task. Materials run under a
// weighted semaphore; inside a material a bounded worker pool consumes
// (ordering, stock solution) units.
type Orchestrator struct {
	log   *zap.SugaredLogger
	place placeFunc
}

type placeFunc func(ctx context.Context, t *Task, material string, panels []model.TileDimensions, stock model.StockSolution) (*model.Solution, error)

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		log:   logger.For(logger.ComponentOrchestrator),
		place: placeWithEngine,
	}
}

func placeWithEngine(ctx context.Context, t *Task, material string, panels []model.TileDimensions, stock model.StockSolution) (*model.Solution, error) {
	return engine.NewPlacer(t.Configuration(), t.ids).Run(ctx, material, panels, stock)
}

// Run explores every material group of t until the search budget is spent,
// a perfect solution is found or ctx is cancelled. Worker failures are
// counted on the task and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, t *Task) error {
	cfg := t.Configuration()
	groups := engine.GroupByMaterial(t.scaled.Panels, t.scaled.Stock)
	if len(groups) == 0 {
		return fmt.Errorf("%w: nothing to optimize", ErrInvalidRequest)
	}

	sem := semaphore.NewWeighted(int64(max(cfg.Performance.MaxSimultaneousTasks, 1)))
	var g errgroup.Group
	for _, mg := range groups {
		t.expect(mg.Material, 0)
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			o.runMaterial(ctx, t, mg)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runMaterial(ctx context.Context, t *Task, mg engine.MaterialGroup) {
	cfg := t.Configuration()
	budget := cfg.Budget()
	log := o.log.With("task", t.ID, "material", mg.Material)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	orderings := engine.Permutations(mg.Panels, mg.Stock, budget.MaxPermutations)
	selector := engine.NewStockSelector(mg.Stock, mg.Panels, cfg.UseSingleStockUnit)
	stockCount := countStock(selector, budget.MaxStockSolutions)

	log.Infof("exploring %d orderings x %d stock solutions for %d panels", len(orderings), stockCount, len(mg.Panels))

	if stockCount == 0 {
		// no usable stock: a single run records every panel as no-fit
		t.expect(mg.Material, 1)
		o.runUnit(ctx, t, mg.Material, orderings[0], model.NewStockSolution(), cancel)
		return
	}
	t.expect(mg.Material, len(orderings)*stockCount)

	pool := new(errgroup.Group)
	pool.SetLimit(max(cfg.Performance.MaxSimultaneousThreads, 1))
	scheduled := 0
	for _, ord := range orderings {
		if ctx.Err() != nil {
			break
		}
		for stock := range selector.Stream(ctx, 1, budget.MaxStockSolutions) {
			scheduled++
			pool.Go(func() error {
				o.runUnit(ctx, t, mg.Material, ord, stock, cancel)
				return nil
			})
		}
	}
	if err := pool.Wait(); err != nil {
		log.Warnf("worker pool: %v", err)
	}
	// units never scheduled after an early exit or cancellation
	if skipped := len(orderings)*stockCount - scheduled; skipped > 0 {
		t.skipUnits(mg.Material, skipped)
	}

	if best := t.Best(mg.Material); best != nil {
		st := best.Stats()
		log.Infof("best solution %d: %d placed, %d no-fit, %d sheets, efficiency %.3f",
			st.ID, st.PlacedPanels, st.NoFitPanels, st.Mosaics, st.Efficiency())
	}
}

// runUnit places one ordering on one stock solution. A perfect result
// cancels the rest of the material's search through stop.
func (o *Orchestrator) runUnit(ctx context.Context, t *Task, material string, ord engine.Ordering, stock model.StockSolution, stop context.CancelFunc) {
	start := time.Now()
	failed := false
	defer func() {
		if r := recover(); r != nil {
			failed = true
			metrics.ObserveRun(metrics.RunPanicked, time.Since(start))
			metrics.IncErrorCountAndLog(metrics.ComponentOrchestrator, t.ID,
				fmt.Errorf("placement run panicked: %v", r), o.log)
		}
		t.unitDone(material, ord.Lead(), failed)
	}()

	if ctx.Err() != nil {
		metrics.ObserveRun(metrics.RunCancelled, 0)
		return
	}

	sol, err := o.place(ctx, t, material, ord.Panels, stock)
	if err != nil {
		metrics.ObserveRun(metrics.RunCancelled, time.Since(start))
		return
	}
	metrics.ObserveRun(metrics.RunCompleted, time.Since(start))

	st := sol.Stats()
	if t.offer(material, sol) {
		metrics.SetBestEfficiency(t.ID, material, st.Efficiency())
	}
	if st.IsPerfect() {
		o.log.Debugw("perfect solution found", "task", t.ID, "material", material, "solution", st.ID)
		stop()
	}
}

// countStock drains selector up to limit and rewinds it.
func countStock(s *engine.StockSelector, limit int) int {
	defer s.Reset()
	n := 0
	for limit <= 0 || n < limit {
		if _, ok := s.Next(); !ok {
			break
		}
		n++
	}
	return n
}
