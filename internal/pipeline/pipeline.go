package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"LMPSentinel/internal/arima"
	"LMPSentinel/internal/calculator"
	"LMPSentinel/internal/calibration"
	"LMPSentinel/internal/detector"
	"LMPSentinel/internal/metrics"
	"LMPSentinel/internal/model"
	"LMPSentinel/internal/normalizer"
)

// DefaultAnalysisWindow is the smoothing window the model is fitted to.
const DefaultAnalysisWindow = 12

// ThresholdOptions selects how the outlier cutoff is obtained.
type ThresholdOptions struct {
	Mode       model.ThresholdMode
	Multiplier float64
	Cutoff     float64
	Symmetric  bool
	// Calibration window for derived and calibrated modes; zero bounds are open.
	From, To time.Time
}

// Options configures one detector pipeline.
type Options struct {
	Normalizer     normalizer.Options
	Windows        []int
	AnalysisWindow int
	Order          model.Order
	Fit            arima.Options
	Threshold      ThresholdOptions
	// StationarityLags < 0 selects the Schwert rule.
	StationarityLags int
	SkipStationarity bool
}

// DefaultOptions matches the reference configuration.
func DefaultOptions() Options {
	return Options{
		Normalizer: normalizer.Options{
			DateLayout:    normalizer.DefaultDateLayout,
			SpringForward: map[string]float64{"03-08-2015": 10.41},
		},
		Windows:        append([]int(nil), calculator.DefaultWindows...),
		AnalysisWindow: DefaultAnalysisWindow,
		Order:          arima.DefaultOrder,
		Fit:            arima.DefaultOptions(),
		Threshold: ThresholdOptions{
			Mode:       model.ThresholdDerived,
			Multiplier: detector.DefaultIQRMultiplier,
		},
		StationarityLags: -1,
	}
}

// Pipeline runs normalize, smooth, fit, residuals and flagging in order.
type Pipeline struct {
	opts    Options
	fitter  *arima.Fitter
	calib   *calibration.Manager
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New validates opts and builds a Pipeline. calib is required only for the
// calibrated threshold mode; m may be nil.
func New(opts Options, calib *calibration.Manager, m *metrics.Metrics, log zerolog.Logger) (*Pipeline, error) {
	if !slices.Contains(opts.Windows, opts.AnalysisWindow) {
		opts.Windows = append(slices.Clone(opts.Windows), opts.AnalysisWindow)
	}
	for _, w := range opts.Windows {
		if w <= 0 {
			return nil, fmt.Errorf("%w: window size must be positive, got %d", model.ErrConfiguration, w)
		}
	}
	switch opts.Threshold.Mode {
	case model.ThresholdDerived:
	case model.ThresholdFixed:
		if _, err := detector.FixedThreshold(opts.Threshold.Cutoff); err != nil {
			return nil, err
		}
	case model.ThresholdCalibrated:
		if calib == nil {
			return nil, fmt.Errorf("%w: calibrated threshold mode needs a calibration state", model.ErrConfiguration)
		}
	default:
		return nil, fmt.Errorf("%w: unknown threshold mode %q", model.ErrConfiguration, opts.Threshold.Mode)
	}
	if opts.Threshold.Mode != model.ThresholdFixed && opts.Threshold.Multiplier <= 0 {
		return nil, fmt.Errorf("%w: IQR multiplier must be positive", model.ErrConfiguration)
	}

	fitter, err := arima.NewFitter(opts.Order, opts.Fit)
	if err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts, fitter: fitter, calib: calib, metrics: m, log: log}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Run processes one raw table. Any stage error aborts the run; nothing is
// retried.
func (p *Pipeline) Run(ctx context.Context, source string, rows []model.RawRow) (*model.Report, error) {
	started := time.Now()
	report, err := p.run(ctx, source, rows)
	elapsed := time.Since(started)
	p.metrics.ObserveRun(report, elapsed, err)
	if err != nil {
		p.log.Error().Err(err).Str("source", source).Dur("elapsed", elapsed).Msg("detection run failed")
		return nil, err
	}
	p.log.Info().
		Str("source", source).
		Int("points", report.Points).
		Int("flags", len(report.Flags)).
		Float64("upper", report.Threshold.Upper).
		Str("order", report.Fit.Order.String()).
		Dur("elapsed", elapsed).
		Msg("detection run complete")
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, source string, rows []model.RawRow) (*model.Report, error) {
	stage := func(name string, began time.Time) {
		p.log.Debug().Str("stage", name).Dur("elapsed", time.Since(began)).Msg("stage done")
	}

	t0 := time.Now()
	points, err := normalizer.Normalize(rows, p.opts.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	stage("normalize", t0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t0 = time.Now()
	smoothed, err := calculator.SmoothAll(points, p.opts.Windows)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	stage("smooth", t0)
	analysis := smoothed[p.opts.AnalysisWindow]

	var stationarity *model.Stationarity
	if !p.opts.SkipStationarity {
		stationarity = p.checkStationarity(analysis)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t0 = time.Now()
	res, err := p.fitter.Fit(analysis.Values)
	if err != nil {
		return nil, fmt.Errorf("fit %s on window %d: %w", p.fitter.Order(), p.opts.AnalysisWindow, err)
	}
	stage("fit", t0)
	fitted := model.FittedSeries{Window: p.opts.AnalysisWindow, Order: res.Order, Values: res.Fitted}

	residuals, err := detector.Residuals(points, fitted)
	if err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	th, err := p.threshold(source, points, residuals)
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}
	flags, err := detector.Flag(points, fitted, residuals, th, p.opts.Threshold.Symmetric)
	if err != nil {
		return nil, fmt.Errorf("flag: %w", err)
	}

	report := &model.Report{
		Source:         source,
		GeneratedAt:    time.Now(),
		Observed:       points,
		Smoothed:       smoothed,
		AnalysisWindow: p.opts.AnalysisWindow,
		Fit:            res.Diagnostics(),
		Stationarity:   stationarity,
		Fitted:         fitted,
		Residuals:      residuals,
		Threshold:      th,
		Flags:          flags,
		Points:         len(points),
	}
	if len(points) > 0 {
		report.Start = points[0].Time
		report.End = points[len(points)-1].Time
	}
	return report, nil
}

// checkStationarity tests the differenced analysis series. A failure to
// reject the unit root is logged and the run continues.
func (p *Pipeline) checkStationarity(series model.SmoothedSeries) *model.Stationarity {
	start, end := series.ValidRange()
	z := arima.Difference(series.Values[start:end], p.opts.Order.D)
	st, err := calculator.ADF(z, p.opts.StationarityLags)
	if err != nil {
		p.log.Warn().Err(err).Msg("stationarity check skipped")
		return nil
	}
	if !st.Stationary {
		p.log.Warn().
			Float64("adf", st.Statistic).
			Float64("critical_5pct", st.Critical5).
			Int("d", p.opts.Order.D).
			Msg("differenced series may not be stationary")
	}
	return st
}

func (p *Pipeline) threshold(source string, points []model.ObservedPoint, residuals model.ResidualSeries) (model.Threshold, error) {
	o := p.opts.Threshold
	switch o.Mode {
	case model.ThresholdFixed:
		return detector.FixedThreshold(o.Cutoff)
	case model.ThresholdCalibrated:
		if p.calib.Calibrated() {
			return p.calib.Get().Threshold, nil
		}
		th, err := p.derive(points, residuals)
		if err != nil {
			return model.Threshold{}, err
		}
		if err := p.calib.Set(th, source, formatBound(o.From, p.opts.Normalizer.DateLayout), formatBound(o.To, p.opts.Normalizer.DateLayout)); err != nil {
			p.log.Warn().Err(err).Msg("failed to persist calibration state")
		}
		th.Mode = model.ThresholdCalibrated
		return th, nil
	default:
		return p.derive(points, residuals)
	}
}

func (p *Pipeline) derive(points []model.ObservedPoint, residuals model.ResidualSeries) (model.Threshold, error) {
	o := p.opts.Threshold
	if o.From.IsZero() && o.To.IsZero() {
		return detector.DeriveThreshold(residuals.Values, o.Multiplier)
	}
	return detector.DeriveThresholdWindow(points, residuals, o.Multiplier, o.From, o.To)
}

func formatBound(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = normalizer.DefaultDateLayout
	}
	return t.Format(layout)
}
