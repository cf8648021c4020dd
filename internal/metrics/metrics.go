// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Modified from github.com/united-manufacturing-hub/united-manufacturing-hub
// umh-core/pkg/metrics for cutplan.

// Package metrics exposes optimizer counters and gauges to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Component labels.
const (
	ComponentService      = "service"
	ComponentOrchestrator = "orchestrator"
	ComponentWatchdog     = "watchdog"
	ComponentAPI          = "api"
)

// Run outcomes.
const (
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunPanicked  = "panicked"
	RunFailed    = "failed"
)

var (
	namespace = "cutplan"
	subsystem = "optimizer"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	tasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_submitted_total",
			Help:      "Total number of accepted optimization tasks",
		},
	)

	tasksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_rejected_total",
			Help:      "Total number of rejected submissions by reason",
		},
		[]string{"reason"},
	)

	tasksActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_active",
			Help:      "Number of tasks currently queued or running",
		},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "status_transitions_total",
			Help:      "Task status transitions by target status",
		},
		[]string{"status"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "placement_runs_total",
			Help:      "Placement engine runs by outcome",
		},
		[]string{"outcome"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "placement_run_duration_seconds",
			Help:      "Duration of a single placement engine run in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	taskProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_progress_percent",
			Help:      "Estimated completion of a running task, 0-100",
		},
		[]string{"task"},
	)

	bestEfficiency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "best_solution_efficiency_ratio",
			Help:      "Used area share of the best solution found so far, per task and material",
		},
		[]string{"task", "material"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// IncErrorCountAndLog increments the error counter and logs the cause.
func IncErrorCountAndLog(component, instance string, err error, log *zap.SugaredLogger) {
	IncErrorCount(component, instance)
	if log != nil {
		log.Errorf("component %s instance %s failed: %v", component, instance, err)
	}
}

func TaskSubmitted() {
	tasksSubmitted.Inc()
}

func TaskRejected(reason string) {
	tasksRejected.WithLabelValues(reason).Inc()
}

func SetActiveTasks(n int) {
	tasksActive.Set(float64(n))
}

func ObserveTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

// ObserveRun records one placement run.
func ObserveRun(outcome string, d time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(d.Seconds())
}

func SetProgress(task string, percent int) {
	taskProgress.WithLabelValues(task).Set(float64(percent))
}

func SetBestEfficiency(task, material string, ratio float64) {
	bestEfficiency.WithLabelValues(task, material).Set(ratio)
}

// ObserveRequest counts one API request.
func ObserveRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ForgetTask drops the per-task series once a task is retired.
func ForgetTask(task string) {
	taskProgress.DeleteLabelValues(task)
	bestEfficiency.DeletePartialMatch(prometheus.Labels{"task": task})
}
