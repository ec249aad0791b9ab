package detector

import (
	"fmt"
	"math"

	"LMPSentinel/internal/model"
)

// Residuals computes value - fitted wherever the fit is defined. The fit is
// made on smoothed data and compared against raw values so short spikes show
// up as large residuals.
func Residuals(observed []model.ObservedPoint, fitted model.FittedSeries) (model.ResidualSeries, error) {
	if len(observed) != len(fitted.Values) {
		return model.ResidualSeries{}, fmt.Errorf("%w: %d points but %d fitted values", model.ErrMalformedInput, len(observed), len(fitted.Values))
	}
	out := make([]float64, len(observed))
	for i, p := range observed {
		f := fitted.Values[i]
		if math.IsNaN(f) {
			out[i] = math.NaN()
			continue
		}
		out[i] = p.Value - f
	}
	return model.ResidualSeries{Values: out}, nil
}

// Flag returns, in timestamp order, every point whose residual exceeds
// th.Upper, plus points below th.Lower when symmetric is set. Undefined
// residuals are skipped. An empty result is normal.
func Flag(observed []model.ObservedPoint, fitted model.FittedSeries, residuals model.ResidualSeries, th model.Threshold, symmetric bool) ([]model.OutlierFlag, error) {
	if len(observed) != len(residuals.Values) || len(observed) != len(fitted.Values) {
		return nil, fmt.Errorf("%w: series lengths differ (%d points, %d fitted, %d residuals)",
			model.ErrMalformedInput, len(observed), len(fitted.Values), len(residuals.Values))
	}
	flags := make([]model.OutlierFlag, 0)
	for i, r := range residuals.Values {
		if math.IsNaN(r) {
			continue
		}
		var dir model.Direction
		switch {
		case r > th.Upper:
			dir = model.DirectionHigh
		case symmetric && r < th.Lower:
			dir = model.DirectionLow
		default:
			continue
		}
		flags = append(flags, model.OutlierFlag{
			Time:      observed[i].Time,
			Value:     observed[i].Value,
			Fitted:    fitted.Values[i],
			Residual:  r,
			Direction: dir,
		})
	}
	return flags, nil
}

// CountByDirection tallies flags.
func CountByDirection(flags []model.OutlierFlag) (high, low int) {
	for _, f := range flags {
		if f.Direction == model.DirectionLow {
			low++
		} else {
			high++
		}
	}
	return high, low
}
