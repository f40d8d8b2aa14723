// Package metrics exposes sync progress as Prometheus metrics.
//
// Recorder implements ports.SyncObserver. The CLI is a batch job, so the
// registry is pushed to a Pushgateway after each pass rather than scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/bft-labs/rowship/internal/domain"
)

const namespace = "rowship"

// Recorder collects per-row and per-run metrics in its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	rows        *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	watermark   *prometheus.GaugeVec
	runDuration prometheus.Gauge
	lastRun     prometheus.Gauge
}

// NewRecorder creates a recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed, by table and outcome.",
		}, []string{"table", "outcome"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_warnings_total",
			Help:      "Values left unconverted, by table.",
		}, []string{"table"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed passes, by result.",
		}, []string{"result"}),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark",
			Help:      "Highest primary key confirmed remotely, by table.",
		}, []string{"table"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last pass.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pass finished.",
		}),
	}
	r.registry.MustRegister(r.rows, r.warnings, r.runs, r.watermark, r.runDuration, r.lastRun)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OnRow counts one processed row.
func (r *Recorder) OnRow(table string, outcome domain.Outcome, warnings int) {
	r.rows.WithLabelValues(table, outcome.String()).Inc()
	if warnings > 0 {
		r.warnings.WithLabelValues(table).Add(float64(warnings))
	}
}

// OnWatermark records a table's new watermark.
func (r *Recorder) OnWatermark(table string, watermark int64) {
	r.watermark.WithLabelValues(table).Set(float64(watermark))
}

// OnRunFinished counts the pass and records its duration.
func (r *Recorder) OnRunFinished(err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.runs.WithLabelValues(result).Inc()
	r.runDuration.Set(duration.Seconds())
	r.lastRun.SetToCurrentTime()
}

// Push sends the registry to a Pushgateway under job, replacing the
// previous push for that job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
