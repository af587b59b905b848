package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tasksAccepted counts requests admitted past validation and auth.
	tasksAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magpie",
		Name:      "tasks_accepted_total",
		Help:      "Cookie requests accepted for background processing",
	})

	// tasksCompleted counts finished tasks. Outcomes: success, failed (the
	// model declared failure or ran out of iterations), error
	// (infrastructure failure).
	tasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magpie",
		Name:      "tasks_completed_total",
		Help:      "Finished cookie tasks by outcome",
	}, []string{"outcome"})

	// taskDuration measures wall-clock time from acceptance to delivery.
	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magpie",
		Name:      "task_duration_seconds",
		Help:      "Wall-clock duration of one cookie task",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	})

	// loopActions counts browser actions executed across all tasks.
	loopActions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magpie",
		Name:      "loop_actions_total",
		Help:      "Browser tool actions executed across all tasks",
	})

	// webhookFailures counts deliveries that failed after retries.
	webhookFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magpie",
		Name:      "webhook_failures_total",
		Help:      "Outcome deliveries that failed after retries",
	})
)
