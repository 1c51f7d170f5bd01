// Package metrics holds the Prometheus collectors for the pool: admission
// counters, an in-flight gauge, and latency histograms for queue wait and
// task execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TasksSubmitted counts tasks accepted into the queue.
var TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskpond",
	Name:      "tasks_submitted_total",
	Help:      "Total tasks accepted into the pending queue.",
})

// TasksFinished counts terminal task outcomes.
var TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskpond",
	Name:      "tasks_finished_total",
	Help:      "Total tasks that reached a terminal state.",
}, []string{"outcome"})

// TasksActive tracks currently executing tasks.
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskpond",
	Name:      "tasks_active",
	Help:      "Number of currently executing tasks.",
})

// QueueWait tracks time from submission to execution start.
var QueueWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskpond",
	Name:      "queue_wait_seconds",
	Help:      "Time from task submission to execution start.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

// TaskDuration tracks task body execution time.
var TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskpond",
	Name:      "task_duration_seconds",
	Help:      "Task body execution duration in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// Outcome label values for TasksFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)
