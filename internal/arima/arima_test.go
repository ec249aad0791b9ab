package arima

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"LMPSentinel/internal/model"
)

func sine(n int, base, amp, period float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = base + amp*math.Sin(2*math.Pi*float64(i)/period)
	}
	return vals
}

func TestFit_PeriodicSeriesConverges(t *testing.T) {
	vals := sine(24*30, 20, 5, 24)
	f, err := NewFitter(DefaultOrder, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.Fit(vals)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(res.Fitted) != len(vals) {
		t.Fatalf("fitted length %d, expected %d", len(res.Fitted), len(vals))
	}
	if len(res.Coefficients.AR) != 6 || len(res.Coefficients.MA) != 1 {
		t.Fatalf("unexpected coefficient shape: %+v", res.Coefficients)
	}
	for i := 48; i < len(vals); i++ {
		if r := vals[i] - res.Fitted[i]; math.Abs(r) > 0.05 {
			t.Fatalf("index %d: residual %.5f, expected near zero", i, r)
		}
	}
}

func TestFit_RecoversAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vals := make([]float64, 3000)
	for i := 1; i < len(vals); i++ {
		vals[i] = 0.6*vals[i-1] + rng.NormFloat64()
	}
	for i := range vals {
		vals[i] += 40
	}
	f, err := NewFitter(model.Order{P: 1, D: 0, Q: 0}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.Fit(vals)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	phi := res.Coefficients.AR[0]
	if math.Abs(phi-0.6) > 0.06 {
		t.Errorf("ar1 = %.3f, expected about 0.6", phi)
	}
	// implied mean c/(1-phi) should be near 40
	if mu := res.Coefficients.Constant / (1 - phi); math.Abs(mu-40) > 0.5 {
		t.Errorf("implied mean %.3f, expected about 40", mu)
	}
	if res.Coefficients.Sigma2 < 0.8 || res.Coefficients.Sigma2 > 1.2 {
		t.Errorf("sigma2 = %.3f, expected about 1", res.Coefficients.Sigma2)
	}
}

func TestFit_AlignsToValidRange(t *testing.T) {
	vals := sine(300, 30, 4, 24)
	for i := 0; i < 6; i++ {
		vals[i] = math.NaN()
		vals[len(vals)-1-i] = math.NaN()
	}
	f, _ := NewFitter(model.Order{P: 2, D: 1, Q: 0}, DefaultOptions())
	res, err := f.Fit(vals)
	if err != nil {
		t.Fatal(err)
	}
	if res.Start != 6 || res.End != 294 {
		t.Fatalf("valid range [%d,%d), expected [6,294)", res.Start, res.End)
	}
	for i := range vals {
		inside := i >= 6 && i < 294
		if inside == math.IsNaN(res.Fitted[i]) {
			t.Fatalf("index %d: fitted defined=%v, expected %v", i, !math.IsNaN(res.Fitted[i]), inside)
		}
	}
	// first d positions echo the observation
	if res.Fitted[6] != vals[6] {
		t.Errorf("first fitted value %.4f, expected %.4f", res.Fitted[6], vals[6])
	}
	if d := res.Diagnostics(); d.Observations != 288 {
		t.Errorf("observations = %d, expected 288", d.Observations)
	}
}

func TestFit_InsufficientData(t *testing.T) {
	f, _ := NewFitter(DefaultOrder, DefaultOptions())
	_, err := f.Fit([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	_, err = f.Fit([]float64{math.NaN(), math.NaN()})
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for undefined series, got %v", err)
	}
}

func TestFit_DivergenceCarriesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vals := make([]float64, 500)
	for i := 1; i < len(vals); i++ {
		vals[i] = vals[i-1] + rng.NormFloat64()
	}
	opts := DefaultOptions()
	opts.MaxIterations = 1
	f, _ := NewFitter(DefaultOrder, opts)
	_, err := f.Fit(vals)
	if !errors.Is(err, model.ErrFitDivergence) {
		t.Fatalf("expected ErrFitDivergence, got %v", err)
	}
	var fe *model.FitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *model.FitError, got %T", err)
	}
	if fe.Order != DefaultOrder {
		t.Errorf("error carries order %s, expected %s", fe.Order, DefaultOrder)
	}
}

func TestNewFitter_Configuration(t *testing.T) {
	if _, err := NewFitter(model.Order{P: -1, D: 1, Q: 1}, DefaultOptions()); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for negative order, got %v", err)
	}
	if _, err := NewFitter(DefaultOrder, Options{}); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero iterations, got %v", err)
	}
}

func TestFit_RandomWalkNeedsNoParameters(t *testing.T) {
	vals := []float64{1, 3, 2, 5, 4}
	f, _ := NewFitter(model.Order{P: 0, D: 1, Q: 0}, DefaultOptions())
	res, err := f.Fit(vals)
	if err != nil {
		t.Fatal(err)
	}
	// prediction is the previous value
	for i := 1; i < len(vals); i++ {
		if res.Fitted[i] != vals[i-1] {
			t.Errorf("index %d: fitted %.1f, expected %.1f", i, res.Fitted[i], vals[i-1])
		}
	}
}

func TestDifference(t *testing.T) {
	got := Difference([]float64{1, 4, 9, 16, 25}, 2)
	want := []float64{2, 2, 2}
	if len(got) != len(want) {
		t.Fatalf("length %d, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: %.1f, expected %.1f", i, got[i], want[i])
		}
	}
	if len(Difference([]float64{1}, 3)) != 0 {
		t.Error("over-differencing should yield an empty series")
	}
}
