// Package metrics registers the Prometheus collectors of the screening pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFatal     = "fatal"
)

// Row status label for skipped rows.
const StatusSkipped = "SKIPPED"

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexushire_runs_total",
			Help: "Total number of screening runs by outcome",
		},
		[]string{"outcome"},
	)

	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexushire_rows_total",
			Help: "Total number of sheet rows processed by status",
		},
		[]string{"status"},
	)

	RowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexushire_row_duration_seconds",
			Help:    "Duration of one candidate row from fetch to notification",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexushire_runs_active",
			Help: "Number of screening runs in progress",
		},
	)
)

// ObserveRow records one processed row.
func ObserveRow(status string, started time.Time) {
	RowsTotal.WithLabelValues(status).Inc()
	if status != StatusSkipped {
		RowDuration.Observe(time.Since(started).Seconds())
	}
}
