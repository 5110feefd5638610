package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store mutations by operation (add, remove, toggle)
	HabitMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_mutations_total",
			Help: "Total number of habit store mutations",
		},
		[]string{"op"},
	)

	// Failed writes of the habit blob
	PersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habit_persist_errors_total",
			Help: "Total number of failed habit collection writes",
		},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)
)

// Recorder forwards store events to the package counters.
type Recorder struct{}

func (Recorder) RecordMutation(op string) {
	HabitMutations.WithLabelValues(op).Inc()
}

func (Recorder) RecordPersistError() {
	PersistErrors.Inc()
}

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
