package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 任务队列指标直接暴露在 /metrics 上，不依赖 OTLP collector
var (
	tasksEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farewatch_tasks_enqueued_total",
			Help: "Total number of tasks accepted by a queue.",
		},
		[]string{"queue"},
	)
	tasksDeduplicated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farewatch_tasks_deduplicated_total",
			Help: "Total number of enqueue calls dropped because an equivalent task was pending.",
		},
		[]string{"queue"},
	)
	tasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farewatch_tasks_processed_total",
			Help: "Total number of tasks handled, by outcome.",
		},
		[]string{"queue", "outcome"},
	)
	taskRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farewatch_task_retries_total",
			Help: "Total number of task retries scheduled.",
		},
		[]string{"queue"},
	)
	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farewatch_task_duration_seconds",
			Help:    "Task handler duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"queue"},
	)
	dueAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "farewatch_due_alerts",
			Help: "Number of due alerts found by the last scheduler scan.",
		},
	)
	quotaUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "farewatch_quota_used_calls",
			Help: "Provider calls counted in the current month.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			tasksEnqueued,
			tasksDeduplicated,
			tasksProcessed,
			taskRetries,
			taskDuration,
			dueAlerts,
			quotaUsed,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- Queue ---
func IncTaskEnqueued(queue string)     { tasksEnqueued.WithLabelValues(queue).Inc() }
func IncTaskDeduplicated(queue string) { tasksDeduplicated.WithLabelValues(queue).Inc() }
func IncTaskRetry(queue string)        { taskRetries.WithLabelValues(queue).Inc() }
func ObserveTask(queue, outcome string, d time.Duration) {
	tasksProcessed.WithLabelValues(queue, outcome).Inc()
	taskDuration.WithLabelValues(queue).Observe(d.Seconds())
}

// --- Business ---
func SetDueAlerts(n int) { dueAlerts.Set(float64(n)) }
func SetQuotaUsed(n int64) {
	if n < 0 {
		n = 0
	}
	quotaUsed.Set(float64(n))
}
