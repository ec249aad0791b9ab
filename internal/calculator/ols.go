package calculator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OLSResult holds a least-squares solution.
type OLSResult struct {
	Beta      []float64
	Residuals []float64
	SSR       float64
	// XtXInv is (X'X + ridge)^-1, used for standard errors.
	XtXInv *mat.SymDense
}

// LeastSquares solves min |y - X b|^2 + ridge*scale*|b|^2 through the normal
// equations. scale is the mean diagonal of X'X so ridge is relative.
// A zero ridge gives plain OLS.
func LeastSquares(x *mat.Dense, y []float64, ridge float64) (*OLSResult, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("design has %d rows, response has %d", rows, len(y))
	}
	if cols == 0 || rows == 0 {
		return nil, errors.New("empty design matrix")
	}

	xtx := mat.NewSymDense(cols, nil)
	xtx.SymOuterK(1, x.T())
	if ridge > 0 {
		scale := 0.0
		for i := 0; i < cols; i++ {
			scale += xtx.At(i, i)
		}
		scale /= float64(cols)
		if scale == 0 {
			scale = 1
		}
		for i := 0; i < cols; i++ {
			xtx.SetSym(i, i, xtx.At(i, i)+ridge*scale)
		}
	}

	yv := mat.NewVecDense(rows, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, errors.New("normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve normal equations: %w", err)
		}
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("invert normal equations: %w", err)
		}
	}

	var fit mat.VecDense
	fit.MulVec(x, &beta)

	res := &OLSResult{
		Beta:      make([]float64, cols),
		Residuals: make([]float64, rows),
		XtXInv:    &inv,
	}
	for i := 0; i < cols; i++ {
		res.Beta[i] = beta.AtVec(i)
	}
	for i := 0; i < rows; i++ {
		r := y[i] - fit.AtVec(i)
		res.Residuals[i] = r
		res.SSR += r * r
	}
	return res, nil
}
