package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"LMPSentinel/internal/model"
)

// Asymptotic MacKinnon critical values for the constant-only ADF regression.
const (
	ADFCritical1  = -3.43
	ADFCritical5  = -2.86
	ADFCritical10 = -2.57
)

// SchwertLags is the usual default lag length 12*(n/100)^(1/4).
func SchwertLags(n int) int {
	return int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
}

// ADF runs an augmented Dickey-Fuller test with a constant:
//
//	dy_t = a + g*y_{t-1} + sum_i b_i*dy_{t-i} + e_t
//
// and reports the t-statistic of g. A negative lags value selects SchwertLags.
// The series is stationary at 5% when the statistic is below ADFCritical5.
func ADF(values []float64, lags int) (*model.Stationarity, error) {
	n := len(values)
	if lags < 0 {
		lags = SchwertLags(n)
	}
	// observations available for the regression
	rows := n - 1 - lags
	cols := 2 + lags
	if rows <= cols {
		return nil, fmt.Errorf("%w: ADF with %d lags needs more than %d points, got %d", model.ErrInsufficientData, lags, cols+lags+1, n)
	}

	dy := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dy[i-1] = values[i] - values[i-1]
	}

	x := mat.NewDense(rows, cols, nil)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + lags // index into dy
		y[r] = dy[t]
		x.Set(r, 0, 1)
		x.Set(r, 1, values[t])
		for i := 1; i <= lags; i++ {
			x.Set(r, 1+i, dy[t-i])
		}
	}

	ols, err := LeastSquares(x, y, 0)
	if err != nil {
		return nil, fmt.Errorf("adf regression: %w", err)
	}
	sigma2 := ols.SSR / float64(rows-cols)
	se := math.Sqrt(sigma2 * ols.XtXInv.At(1, 1))
	stat := ols.Beta[1] / se
	if se == 0 || math.IsNaN(stat) || math.IsInf(stat, 0) {
		return nil, fmt.Errorf("%w: adf regression is degenerate", model.ErrInsufficientData)
	}

	return &model.Stationarity{
		Statistic:  stat,
		Critical5:  ADFCritical5,
		Lags:       lags,
		Stationary: stat < ADFCritical5,
	}, nil
}
