package detector

import (
	"fmt"
	"math"
	"time"

	"LMPSentinel/internal/calculator"
	"LMPSentinel/internal/model"
)

// DefaultIQRMultiplier puts the cutoff roughly 3 IQRs above the third quartile.
const DefaultIQRMultiplier = 3.0

// DeriveThreshold computes Q3 + k*IQR (and Q1 - k*IQR) from the finite residuals.
func DeriveThreshold(residuals []float64, multiplier float64) (model.Threshold, error) {
	if multiplier <= 0 {
		return model.Threshold{}, fmt.Errorf("%w: IQR multiplier must be positive, got %g", model.ErrConfiguration, multiplier)
	}
	q1, q3, n, err := calculator.Quartiles(residuals)
	if err != nil {
		return model.Threshold{}, fmt.Errorf("%w: derive threshold: %v", model.ErrInsufficientData, err)
	}
	iqr := q3 - q1
	return model.Threshold{
		Mode:       model.ThresholdDerived,
		Upper:      q3 + multiplier*iqr,
		Lower:      q1 - multiplier*iqr,
		Q1:         q1,
		Q3:         q3,
		IQR:        iqr,
		Multiplier: multiplier,
		Samples:    n,
	}, nil
}

// DeriveThresholdWindow restricts the derivation to residuals whose timestamp
// falls in [from, to]. A zero bound is open.
func DeriveThresholdWindow(observed []model.ObservedPoint, residuals model.ResidualSeries, multiplier float64, from, to time.Time) (model.Threshold, error) {
	if len(observed) != len(residuals.Values) {
		return model.Threshold{}, fmt.Errorf("%w: %d points but %d residuals", model.ErrMalformedInput, len(observed), len(residuals.Values))
	}
	sample := make([]float64, 0, len(observed))
	for i, p := range observed {
		if !from.IsZero() && p.Time.Before(from) {
			continue
		}
		if !to.IsZero() && p.Time.After(to) {
			continue
		}
		sample = append(sample, residuals.Values[i])
	}
	return DeriveThreshold(sample, multiplier)
}

// FixedThreshold uses a literal cutoff, mirrored below zero for symmetric flagging.
func FixedThreshold(cutoff float64) (model.Threshold, error) {
	if cutoff <= 0 || math.IsNaN(cutoff) || math.IsInf(cutoff, 0) {
		return model.Threshold{}, fmt.Errorf("%w: cutoff must be positive, got %g", model.ErrConfiguration, cutoff)
	}
	return model.Threshold{
		Mode:  model.ThresholdFixed,
		Upper: cutoff,
		Lower: -cutoff,
	}, nil
}
