// Package metrics exposes Prometheus instruments for the print pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_jobs_enqueued_total",
			Help: "Total number of documents accepted into the queue",
		},
		[]string{"kind"}, // direct, convert, rejected
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal state",
		},
		[]string{"outcome"}, // printed, failed
	)

	JobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_job_failures_total",
			Help: "Total number of failed attempts by error kind and class",
		},
		[]string{"error_kind", "failure_class"},
	)

	JobsRetriedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoprint_jobs_retried_total",
			Help: "Total number of jobs re-enqueued after a transient failure",
		},
	)

	ArchivalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoprint_archival_errors_total",
			Help: "Total number of documents that could not be relocated",
		},
	)

	GateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoprint_gate_checks_total",
			Help: "Total number of gate evaluations by gate and result",
		},
		[]string{"gate", "result"}, // gate: network, printer
	)

	// Gauges
	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autoprint_queue_length",
			Help: "Current number of queued jobs by status",
		},
		[]string{"status"},
	)

	// Histograms
	ConversionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autoprint_conversion_duration_seconds",
			Help:    "Document conversion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
	)

	PrintDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autoprint_print_duration_seconds",
			Help:    "Time from submission to confirmed completion in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17m
		},
	)
)
