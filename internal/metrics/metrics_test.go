package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"LMPSentinel/internal/model"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	report := &model.Report{
		Points:    720,
		Threshold: model.Threshold{Upper: 14.5},
		Fit:       model.FitDiagnostics{Iterations: 312},
		Flags: []model.OutlierFlag{
			{Direction: model.DirectionHigh},
			{Direction: model.DirectionHigh},
			{Direction: model.DirectionLow},
		},
	}
	m.ObserveRun(report, 150*time.Millisecond, nil)
	m.ObserveRun(nil, time.Millisecond, fmt.Errorf("stage fit: %w", model.ErrFitDivergence))

	got := gather(t, reg)
	checks := map[string]float64{
		"lmpsentinel_runs_total/ok":             1,
		"lmpsentinel_runs_total/fit_divergence": 1,
		"lmpsentinel_points":                    720,
		"lmpsentinel_threshold_upper":           14.5,
		"lmpsentinel_fit_iterations":            312,
		"lmpsentinel_outliers_total/HIGH":       2,
		"lmpsentinel_outliers_total/LOW":        1,
		"lmpsentinel_run_duration_seconds":      2,
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun(&model.Report{}, time.Second, nil)
}

func TestResultLabel(t *testing.T) {
	cases := map[error]string{
		nil: "ok",
		&model.RowError{Line: 3, Reason: "bad"}: "malformed_input",
		model.ErrInsufficientData:                  "insufficient_data",
		fmt.Errorf("x: %w", model.ErrConfiguration): "configuration",
		errors.New("boom"):                          "error",
	}
	for err, want := range cases {
		if got := ResultLabel(err); got != want {
			t.Errorf("ResultLabel(%v) = %s, want %s", err, got, want)
		}
	}
}
