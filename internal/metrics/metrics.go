package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"LMPSentinel/internal/model"
)

// Metrics holds the detector's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	points        prometheus.Gauge
	outliers      *prometheus.CounterVec
	upperCutoff   prometheus.Gauge
	fitIterations prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmpsentinel_runs_total",
				Help: "Total number of detection runs by result",
			},
			[]string{"result"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lmpsentinel_run_duration_seconds",
				Help:    "Duration of detection runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		points: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lmpsentinel_points",
				Help: "Hourly points processed by the last run",
			},
		),
		outliers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmpsentinel_outliers_total",
				Help: "Total number of flagged outliers by direction",
			},
			[]string{"direction"},
		),
		upperCutoff: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lmpsentinel_threshold_upper",
				Help: "Upper residual cutoff used by the last run",
			},
		),
		fitIterations: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lmpsentinel_fit_iterations",
				Help: "Optimiser iterations used by the last fit",
			},
		),
	}
}

// ObserveRun records the outcome of one run. report may be nil on failure.
func (m *Metrics) ObserveRun(report *model.Report, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.runsTotal.WithLabelValues(ResultLabel(err)).Inc()
		return
	}
	m.runsTotal.WithLabelValues("ok").Inc()
	if report == nil {
		return
	}
	m.points.Set(float64(report.Points))
	m.upperCutoff.Set(report.Threshold.Upper)
	m.fitIterations.Set(float64(report.Fit.Iterations))
	for _, f := range report.Flags {
		m.outliers.WithLabelValues(string(f.Direction)).Inc()
	}
}
