package arima

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"LMPSentinel/internal/model"
)

// DefaultOrder is the model used for the hourly price series.
var DefaultOrder = model.Order{P: 6, D: 1, Q: 1}

// Options tunes estimation.
type Options struct {
	// MaxIterations bounds the optimiser's major iterations.
	MaxIterations int
	// Tolerance is the relative CSS improvement below which the optimiser
	// counts an iteration as stalled.
	Tolerance float64
	// StallIterations is how many stalled iterations mean convergence.
	StallIterations int
	// Ridge regularises the least-squares starting values.
	Ridge float64
	// LongAROrder is the first-stage AR order used to estimate innovations
	// when q > 0. Zero picks one from the series length.
	LongAROrder int
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:   20000,
		Tolerance:       1e-10,
		StallIterations: 100,
		Ridge:           1e-8,
	}
}

// Fitter estimates an ARIMA(p,d,q) model.
type Fitter struct {
	order model.Order
	opts  Options
}

// NewFitter validates the order and options.
func NewFitter(order model.Order, opts Options) (*Fitter, error) {
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, fmt.Errorf("%w: negative model order %s", model.ErrConfiguration, order)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive", model.ErrConfiguration)
	}
	if opts.StallIterations <= 0 {
		opts.StallIterations = DefaultOptions().StallIterations
	}
	if opts.Ridge < 0 {
		return nil, fmt.Errorf("%w: ridge must not be negative", model.ErrConfiguration)
	}
	return &Fitter{order: order, opts: opts}, nil
}

// Order returns the configured model order.
func (f *Fitter) Order() model.Order { return f.order }

// Result is a fitted model together with its in-sample predictions.
type Result struct {
	Order        model.Order
	Coefficients model.Coefficients
	// Fitted and Errors are aligned with the input; NaN outside [Start, End).
	Fitted      []float64
	Errors      []float64
	Start, End  int
	CSS         float64
	Iterations  int
	Evaluations int
}

// Diagnostics summarises the fit.
func (r *Result) Diagnostics() model.FitDiagnostics {
	return model.FitDiagnostics{
		Order:        r.Order,
		Coefficients: r.Coefficients,
		CSS:          r.CSS,
		Iterations:   r.Iterations,
		Evaluations:  r.Evaluations,
		Observations: r.End - r.Start,
	}
}

// Fit estimates the model on the first contiguous non-NaN run of values.
// The series is differenced d times, starting values come from two-stage
// least squares and are refined by minimising the conditional sum of squares.
// One-step-ahead fitted values are produced for every index of the run.
func (f *Fitter) Fit(values []float64) (*Result, error) {
	start, end := model.ValidRange(values)
	y := values[start:end]
	if len(y) < f.order.MinObservations() {
		return nil, fmt.Errorf("%w: %d usable observations, %s needs at least %d",
			model.ErrInsufficientData, len(y), f.order, f.order.MinObservations())
	}

	z := Difference(y, f.order.D)
	s := arma{p: f.order.P, q: f.order.Q, constant: f.order.D == 0}
	pre := 0.0
	if s.constant {
		pre = mean(z)
	}

	x0 := hannanRissanen(s, z, f.opts)

	x := x0
	iterations, evaluations := 0, 0
	if s.nparams() > 0 {
		problem := optimize.Problem{
			Func: func(x []float64) float64 { return s.css(x, z, pre) },
		}
		settings := &optimize.Settings{
			MajorIterations: f.opts.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   f.opts.Tolerance,
				Iterations: f.opts.StallIterations,
			},
		}
		res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err != nil {
			it := 0
			if res != nil {
				it = res.Stats.MajorIterations
			}
			return nil, &model.FitError{Order: f.order, Iterations: it, Err: err}
		}
		if res.Status.Early() {
			return nil, &model.FitError{
				Order:      f.order,
				Iterations: res.Stats.MajorIterations,
				Err:        fmt.Errorf("optimizer stopped: %v", res.Status),
			}
		}
		x = res.X
		iterations = res.Stats.MajorIterations
		evaluations = res.Stats.FuncEvaluations
	}

	_, errs := s.filter(x, z, pre)
	css := sumSquares(errs[min(s.p, len(errs)):])
	if math.IsNaN(css) || math.IsInf(css, 0) {
		return nil, &model.FitError{Order: f.order, Iterations: iterations, Err: fmt.Errorf("non-finite residuals")}
	}

	out := &Result{
		Order:       f.order,
		Fitted:      nanSlice(len(values)),
		Errors:      nanSlice(len(values)),
		Start:       start,
		End:         end,
		CSS:         css,
		Iterations:  iterations,
		Evaluations: evaluations,
	}
	c, ar, ma := s.unpack(x)
	out.Coefficients = model.Coefficients{
		Constant: c,
		AR:       append([]float64(nil), ar...),
		MA:       append([]float64(nil), ma...),
	}
	if effective := len(z) - s.p; effective > 0 {
		out.Coefficients.Sigma2 = css / float64(effective)
	}

	// The level forecast error equals the differenced forecast error, so
	// fitted_t = y_t - e_t. The first d levels have no differenced value.
	for k := range y {
		t := start + k
		if k < f.order.D {
			out.Fitted[t] = y[k]
			out.Errors[t] = 0
			continue
		}
		e := errs[k-f.order.D]
		out.Fitted[t] = y[k] - e
		out.Errors[t] = e
	}
	return out, nil
}

// Difference applies the first difference d times.
func Difference(values []float64, d int) []float64 {
	out := append([]float64(nil), values...)
	for i := 0; i < d; i++ {
		if len(out) == 0 {
			return out
		}
		next := make([]float64, len(out)-1)
		for j := 1; j < len(out); j++ {
			next[j-1] = out[j] - out[j-1]
		}
		out = next
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func sumSquares(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
