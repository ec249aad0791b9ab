package arima

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"LMPSentinel/internal/calculator"
)

// penalty replaces a non-finite objective so the simplex moves away.
const penalty = 1e300

// arma describes the ARMA part estimated on the differenced series.
// Parameters are packed as [constant] ar_1..ar_p ma_1..ma_q.
type arma struct {
	p, q     int
	constant bool
}

func (s arma) nparams() int {
	n := s.p + s.q
	if s.constant {
		n++
	}
	return n
}

func (s arma) unpack(x []float64) (c float64, ar, ma []float64) {
	off := 0
	if s.constant {
		c = x[0]
		off = 1
	}
	return c, x[off : off+s.p], x[off+s.p : off+s.p+s.q]
}

// filter returns one-step predictions and errors of z. Lags before the
// sample take the value pre; errors before the sample are zero.
func (s arma) filter(x, z []float64, pre float64) (pred, errs []float64) {
	c, ar, ma := s.unpack(x)
	pred = make([]float64, len(z))
	errs = make([]float64, len(z))
	for t := range z {
		v := c
		for i := 1; i <= s.p; i++ {
			if t-i >= 0 {
				v += ar[i-1] * z[t-i]
			} else {
				v += ar[i-1] * pre
			}
		}
		for j := 1; j <= s.q && t-j >= 0; j++ {
			v += ma[j-1] * errs[t-j]
		}
		pred[t] = v
		errs[t] = z[t] - v
	}
	return pred, errs
}

// css is the conditional sum of squares, skipping the first p errors.
func (s arma) css(x, z []float64, pre float64) float64 {
	_, errs := s.filter(x, z, pre)
	total := 0.0
	for t := s.p; t < len(errs); t++ {
		total += errs[t] * errs[t]
	}
	if math.IsNaN(total) || math.IsInf(total, 0) || total > penalty {
		return penalty
	}
	return total
}

// hannanRissanen computes starting values: a long autoregression estimates
// the innovations, then z is regressed on its own lags and lagged innovations.
func hannanRissanen(s arma, z []float64, opts Options) []float64 {
	x0 := make([]float64, s.nparams())
	if len(x0) == 0 {
		return x0
	}

	innov := make([]float64, len(z))
	first := 0
	if s.q > 0 {
		m := opts.LongAROrder
		if m <= 0 {
			m = max(s.p+s.q, min(20, len(z)/4))
		}
		if m > len(z)-1 {
			m = len(z) - 1
		}
		if m > 0 {
			beta, ok := regress(z, m, nil, 0, s.constant, m, opts.Ridge)
			if ok {
				for t := m; t < len(z); t++ {
					v := 0.0
					off := 0
					if s.constant {
						v = beta[0]
						off = 1
					}
					for i := 1; i <= m; i++ {
						v += beta[off+i-1] * z[t-i]
					}
					innov[t] = z[t] - v
				}
				first = m
			}
		}
	}

	from := max(s.p, first+s.q)
	beta, ok := regress(z, s.p, innov, s.q, s.constant, from, opts.Ridge)
	if !ok {
		return x0
	}
	for i, b := range beta {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return make([]float64, len(x0))
		}
		x0[i] = b
	}
	return x0
}

// regress fits z_t on [1], z_{t-1..t-p}, e_{t-1..t-q} for t >= from.
func regress(z []float64, p int, e []float64, q int, constant bool, from int, ridge float64) ([]float64, bool) {
	rows := len(z) - from
	cols := p + q
	if constant {
		cols++
	}
	if rows <= 0 || cols == 0 {
		return nil, false
	}
	x := mat.NewDense(rows, cols, nil)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := from + r
		y[r] = z[t]
		c := 0
		if constant {
			x.Set(r, c, 1)
			c++
		}
		for i := 1; i <= p; i++ {
			x.Set(r, c, z[t-i])
			c++
		}
		for j := 1; j <= q; j++ {
			x.Set(r, c, e[t-j])
			c++
		}
	}
	ols, err := calculator.LeastSquares(x, y, ridge)
	if err != nil {
		return nil, false
	}
	return ols.Beta, true
}
