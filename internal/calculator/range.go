package calculator

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Finite returns a sorted copy of values with NaN and Inf removed.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// Quartiles returns the first and third quartiles of the finite values,
// using linear interpolation of the empirical distribution.
func Quartiles(values []float64) (q1, q3 float64, n int, err error) {
	sorted := Finite(values)
	if len(sorted) == 0 {
		return 0, 0, 0, errors.New("no finite values provided")
	}
	q1 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	return q1, q3, len(sorted), nil
}

// MeanStd returns the mean and sample standard deviation of the finite values.
func MeanStd(values []float64) (mean, std float64) {
	sorted := Finite(values)
	if len(sorted) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0], 0
	}
	return stat.MeanStdDev(sorted, nil)
}
