package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/metrics"
	"github.com/piwi3910/cutplan/internal/model"
)

// Watchdog reports a task's progress on every tick and stops it once it
// runs longer than the timeout.
type Watchdog struct {
	interval time.Duration
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewWatchdog(interval, timeout time.Duration) *Watchdog {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watchdog{
		interval: interval,
		timeout:  timeout,
		logger:   logger.For(logger.ComponentWatchdog),
	}
}

// Watch blocks until t's execution returns.
func (w *Watchdog) Watch(t *Task) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Done():
			metrics.SetProgress(t.ID, t.PercentDone())
			return
		case <-ticker.C:
			w.check(t)
		}
	}
}

func (w *Watchdog) check(t *Task) {
	pct := t.PercentDone()
	metrics.SetProgress(t.ID, pct)

	elapsed := t.Elapsed()
	if w.timeout > 0 && elapsed > w.timeout && t.Status() == model.StatusRunning {
		w.logger.Warnf("task %s exceeded timeout of %s, stopping", t.ID, w.timeout)
		if err := t.halt(model.StatusStopped); err != nil {
			w.logger.Debugf("task %s could not be stopped: %v", t.ID, err)
		}
		return
	}

	w.logger.Debugf("task %s is %d%% done after %.1f seconds", t.ID, pct, elapsed.Seconds())
}
