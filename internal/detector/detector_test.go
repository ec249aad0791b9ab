package detector

import (
	"errors"
	"math"
	"testing"
	"time"

	"LMPSentinel/internal/model"
)

func hourly(values []float64) []model.ObservedPoint {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.ObservedPoint, len(values))
	for i, v := range values {
		out[i] = model.ObservedPoint{Time: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return out
}

func TestResiduals_UndefinedFitPropagates(t *testing.T) {
	obs := hourly([]float64{10, 12, 14, 16})
	fit := model.FittedSeries{Values: []float64{math.NaN(), 11, 15, math.NaN()}}
	res, err := Residuals(obs, fit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(res.Values[0]) || !math.IsNaN(res.Values[3]) {
		t.Errorf("expected NaN residuals at undefined fit, got %v", res.Values)
	}
	if res.Values[1] != 1 || res.Values[2] != -1 {
		t.Errorf("unexpected residuals %v", res.Values)
	}
}

func TestResiduals_LengthMismatch(t *testing.T) {
	_, err := Residuals(hourly([]float64{1, 2}), model.FittedSeries{Values: []float64{1}})
	if !errors.Is(err, model.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestDeriveThreshold(t *testing.T) {
	vals := make([]float64, 0, 101)
	for i := 0; i <= 100; i++ {
		vals = append(vals, float64(i))
	}
	vals = append(vals, math.NaN())
	th, err := DeriveThreshold(vals, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Samples != 101 {
		t.Errorf("expected 101 samples, got %d", th.Samples)
	}
	if th.Q3 <= th.Q1 {
		t.Fatalf("expected Q3 > Q1, got %.2f / %.2f", th.Q1, th.Q3)
	}
	if math.Abs(th.Upper-(th.Q3+3*th.IQR)) > 1e-12 {
		t.Errorf("upper %.4f does not equal Q3+3*IQR", th.Upper)
	}
	if math.Abs(th.Lower-(th.Q1-3*th.IQR)) > 1e-12 {
		t.Errorf("lower %.4f does not equal Q1-3*IQR", th.Lower)
	}
	if th.Mode != model.ThresholdDerived {
		t.Errorf("expected derived mode, got %s", th.Mode)
	}
}

func TestDeriveThreshold_Errors(t *testing.T) {
	if _, err := DeriveThreshold([]float64{1, 2, 3}, 0); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero multiplier, got %v", err)
	}
	if _, err := DeriveThreshold([]float64{math.NaN()}, 3); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for no finite residuals, got %v", err)
	}
}

func TestDeriveThresholdWindow(t *testing.T) {
	vals := make([]float64, 48)
	for i := range vals {
		vals[i] = float64(i % 24)
	}
	obs := hourly(vals)
	res := model.ResidualSeries{Values: vals}
	from := obs[24].Time
	th, err := DeriveThresholdWindow(obs, res, 1.5, from, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Samples != 24 {
		t.Errorf("expected 24 samples inside the window, got %d", th.Samples)
	}
}

func TestFixedThreshold(t *testing.T) {
	th, err := FixedThreshold(14.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Upper != 14.5 || th.Lower != -14.5 {
		t.Errorf("unexpected bounds %.2f / %.2f", th.Lower, th.Upper)
	}
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := FixedThreshold(bad); !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("cutoff %v: expected ErrConfiguration, got %v", bad, err)
		}
	}
}

func TestFlag_OrderedAndDirectional(t *testing.T) {
	obs := hourly([]float64{10, 40, 10, -30, 10})
	fit := model.FittedSeries{Values: []float64{math.NaN(), 10, 10, 10, 10}}
	res, err := Residuals(obs, fit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	th := model.Threshold{Upper: 20, Lower: -20}

	flags, err := Flag(obs, fit, res, th, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flags) != 1 || !flags[0].Time.Equal(obs[1].Time) {
		t.Fatalf("expected one high flag at hour 1, got %+v", flags)
	}
	if flags[0].Direction != model.DirectionHigh || flags[0].Residual != 30 {
		t.Errorf("unexpected flag %+v", flags[0])
	}

	flags, err = Flag(obs, fit, res, th, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags with symmetric detection, got %d", len(flags))
	}
	if !flags[0].Time.Before(flags[1].Time) {
		t.Error("flags are not in timestamp order")
	}
	high, low := CountByDirection(flags)
	if high != 1 || low != 1 {
		t.Errorf("expected 1 high and 1 low, got %d / %d", high, low)
	}
}

func TestFlag_NoOutliers(t *testing.T) {
	obs := hourly([]float64{10, 11, 12})
	fit := model.FittedSeries{Values: []float64{10, 11, 12}}
	res, _ := Residuals(obs, fit)
	flags, err := Flag(obs, fit, res, model.Threshold{Upper: 1, Lower: -1}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flags == nil || len(flags) != 0 {
		t.Errorf("expected empty non-nil flags, got %v", flags)
	}
}

func TestFlag_EmptyInput(t *testing.T) {
	flags, err := Flag(nil, model.FittedSeries{}, model.ResidualSeries{}, model.Threshold{Upper: 1}, false)
	if err != nil || len(flags) != 0 {
		t.Errorf("expected no flags and no error, got %v / %v", flags, err)
	}
}
