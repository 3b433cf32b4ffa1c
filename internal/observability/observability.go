// Package observability holds the process-wide logger and Prometheus metrics.
package observability

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_tasks_submitted_total",
		Help: "The total number of submitted search tasks",
	})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_tasks_processed_total",
		Help: "The total number of processed search tasks",
	}, []string{"status"}) // status: completed, failed

	PostingsScraped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postings_scraped_total",
		Help: "The total number of postings returned by each source",
	}, []string{"source"})

	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_task_duration_seconds",
		Help:    "End-to-end duration of search task processing.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// NewLogger creates a new structured logger.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// MetricsHandler exposes the Prometheus registry over HTTP.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
