package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gwr/metrics"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// rankTolerance bounds the condition number of the column-equilibrated
// design restricted to the rows with positive weight. Above it the design
// is treated as rank deficient.
const rankTolerance = 1e12

// solution is the result of one weighted least squares solve.
type solution struct {
	coef   []float64 // intercept first when the design has an intercept column
	fitted []float64
	r2     float64
}

// solveWeighted minimizes Σ wᵢ(zᵢ - Yᵢb)² for design Y, target z and
// diagonal weights w (nil means unit weights). The problem is solved as
// the least squares system √W·Y b = √W·z by QR, so weights spanning many
// orders of magnitude do not square the condition number. All matrices are
// allocated here, so concurrent calls share nothing.
func solveWeighted(op string, Y *mat.Dense, z, w []float64) (*solution, error) {
	n, k := Y.Dims()
	if n < k {
		return nil, errors.NewFitError(op, "rank deficient design", errors.ErrSingularMatrix)
	}
	if err := checkRank(op, Y, w); err != nil {
		return nil, err
	}

	sw := make([]float64, n)
	for i := range sw {
		sw[i] = 1
		if w != nil {
			sw[i] = math.Sqrt(w[i])
		}
	}
	var a mat.Dense
	a.Apply(func(i, _ int, v float64) float64 { return v * sw[i] }, Y)
	rhs := mat.NewVecDense(n, nil)
	for i := range sw {
		rhs.SetVec(i, z[i]*sw[i])
	}

	var qr mat.QR
	qr.Factorize(&a)
	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, rhs); err != nil {
		// A large condition number of √W·Y comes from the weights alone once
		// checkRank has passed; the solution is still usable.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, errors.NewFitError(op, "ill-conditioned solve", errors.ErrSingularMatrix)
		}
	}
	coef := b.RawVector().Data
	if err := errors.CheckNumericalStability(op, coef, 0); err != nil {
		return nil, errors.NewFitError(op, "ill-conditioned solve", errors.ErrSingularMatrix)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(Y, &b)
	zhat := fitted.RawVector().Data

	r2, err := metrics.WeightedR2(z, zhat, w)
	if err != nil {
		return nil, errors.NewFitError(op, "zero total weight", err)
	}

	return &solution{coef: coef, fitted: zhat, r2: r2}, nil
}

// checkRank reports ErrSingularMatrix when the rows of Y that carry
// positive weight do not determine all coefficients. The weights
// themselves are left out and every column is scaled to unit norm, so
// neither row nor column scaling changes the verdict.
func checkRank(op string, Y *mat.Dense, w []float64) error {
	n, k := Y.Dims()
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if w == nil || w[i] > 0 {
			rows = append(rows, i)
		}
	}
	if len(rows) < k {
		return errors.NewFitError(op, "rank deficient design", errors.ErrSingularMatrix)
	}

	d := mat.NewDense(len(rows), k, nil)
	col := make([]float64, len(rows))
	for j := 0; j < k; j++ {
		for r, i := range rows {
			col[r] = Y.At(i, j)
		}
		norm := floats.Norm(col, 2)
		if norm == 0 {
			return errors.NewFitError(op, "rank deficient design", errors.ErrSingularMatrix)
		}
		floats.Scale(1/norm, col)
		d.SetCol(j, col)
	}

	var qr mat.QR
	qr.Factorize(d)
	if c := qr.Cond(); math.IsNaN(c) || c > rankTolerance {
		return errors.NewFitError(op, "rank deficient design", errors.ErrSingularMatrix)
	}
	return nil
}
