// Package linear fits linear models by weighted least squares.
//
// WeightedLeastSquares is the per-location solver of a geographically
// weighted regression. LinearRegression is the ordinary global model used
// for comparison and summaries.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Sample is one weighted observation.
type Sample = model.Sample

// WeightedLeastSquares fits z = b0 + Σ bj·xj minimising Σ wᵢ(zᵢ - ẑᵢ)².
// The zero value is ready to use and safe for concurrent Fit calls.
type WeightedLeastSquares struct{}

var _ model.SampleFitter = WeightedLeastSquares{}

const wlsOp = "WeightedLeastSquares.Fit"

// Fit solves the weighted least squares problem for samples. Every sample must
// carry the same number of predictors p, and at least p+1 samples are
// required. Failures are *errors.FitError values wrapping one of
// ErrInsufficientSamples, ErrSingularMatrix, ErrNonFinite or ErrZeroWeight.
func (WeightedLeastSquares) Fit(samples []Sample) (*model.LocalModel, error) {
	n := len(samples)
	if n == 0 {
		return nil, errors.NewFitError(wlsOp, "insufficient samples", errors.ErrInsufficientSamples)
	}

	p := len(samples[0].X)
	if n < p+1 {
		return nil, errors.NewFitError(wlsOp, "insufficient samples",
			errors.Wrapf(errors.ErrInsufficientSamples, "%d samples for %d coefficients", n, p+1))
	}

	Y := mat.NewDense(n, p+1, nil)
	z := make([]float64, n)
	w := make([]float64, n)
	var sumW float64

	for i, s := range samples {
		if len(s.X) != p {
			return nil, errors.NewFitError(wlsOp, "dimension mismatch", errors.NewDimensionError(wlsOp, p, len(s.X), 1))
		}
		if !errors.IsFinite(s.Z) || !errors.IsFinite(s.W) {
			return nil, errors.NewFitError(wlsOp, "non-finite value", errors.ErrNonFinite)
		}
		if s.W < 0 {
			return nil, errors.NewValueError(wlsOp, "negative sample weight")
		}

		Y.Set(i, 0, 1)
		for j, x := range s.X {
			if !errors.IsFinite(x) {
				return nil, errors.NewFitError(wlsOp, "non-finite value", errors.ErrNonFinite)
			}
			Y.Set(i, j+1, x)
		}
		z[i] = s.Z
		w[i] = s.W
		sumW += s.W
	}

	if sumW <= 0 {
		return nil, errors.NewFitError(wlsOp, "zero total weight", errors.ErrZeroWeight)
	}

	sol, err := solveWeighted(wlsOp, Y, z, w)
	if err != nil {
		return nil, err
	}

	return &model.LocalModel{
		Intercept: sol.coef[0],
		Slopes:    sol.coef[1:],
		R2:        sol.r2,
		N:         n,
	}, nil
}
