// Package metrics provides Prometheus metrics for the generator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for a generation run.
type Metrics struct {
	// Generation metrics
	RowsGenerated prometheus.Counter
	BytesWritten  prometheus.Counter
	FilesWritten  prometheus.Counter

	// Estimation metrics
	SampleRows           prometheus.Counter
	EstimationIterations prometheus.Counter
	EstimationDeviation  prometheus.Gauge

	// Worker metrics
	TaskDuration   prometheus.Histogram
	WorkerFailures prometheus.Counter
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "parqgen"
	}

	m := &Metrics{
		RowsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_generated_total",
			Help:      "Total number of synthetic rows generated",
		}),
		BytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total bytes of parquet output written",
		}),
		FilesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Total number of output files written",
		}),
		SampleRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_rows_total",
			Help:      "Total rows materialized for size estimation",
		}),
		EstimationIterations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimation_iterations_total",
			Help:      "Total size estimation iterations performed",
		}),
		EstimationDeviation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estimation_deviation",
			Help:      "Last reported relative deviation of achieved vs target size",
		}),
		TaskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of worker generation tasks",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		WorkerFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Total worker task failures",
		}),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics, or nil if Init was never called.
func Get() *Metrics {
	return defaultMetrics
}

// Serve exposes the metrics over HTTP at /metrics. Blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
