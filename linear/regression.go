package linear

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/core/parallel"
	"github.com/YuminosukeSato/gwr/metrics"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
)

// LinearRegression is an ordinary (optionally weighted) least squares model
// over a whole data set.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept  bool
	sampleWeights []float64
	logger        log.Logger

	// Coefficients, one per feature.
	Weights []float64
	// Intercept is zero when fitted without one.
	Intercept float64
	// R2 is the (weighted) coefficient of determination on the training data.
	R2 float64
}

var _ model.Regressor = (*LinearRegression)(nil)

// NewLinearRegression creates a model that fits an intercept by default.
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager("LinearRegression"),
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName("linear").With(
			log.ModelNameKey, "LinearRegression",
			log.ComponentKey, "linear",
		)
	}
	return lr
}

// Fit finds w minimizing Σ sᵢ(yᵢ - Xᵢw)² for sample weights s. y must be a column vector.
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")
	const op = "LinearRegression.Fit"

	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if lr.sampleWeights != nil && len(lr.sampleWeights) != r {
		return errors.NewDimensionError(op, r, len(lr.sampleWeights), 0)
	}

	start := time.Now()
	lr.logger.Info("Starting model training.",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	design := mat.NewDense(r, c+offset, nil)
	z := make([]float64, r)

	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if lr.fitIntercept {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
			z[i] = y.At(i, 0)
		}
	})

	if err := errors.CheckMatrix(op, design, r, c+offset); err != nil {
		return errors.NewModelError(op, "non-finite value", errors.ErrNonFinite)
	}
	if err := errors.CheckNumericalStability(op, z, 0); err != nil {
		return errors.NewModelError(op, "non-finite value", errors.ErrNonFinite)
	}

	sol, err := solveWeighted(op, design, z, lr.sampleWeights)
	if err != nil {
		return err
	}

	if lr.fitIntercept {
		lr.Intercept = sol.coef[0]
	} else {
		lr.Intercept = 0
	}
	lr.Weights = sol.coef[offset:]
	lr.R2 = sol.r2
	lr.state.SetFitted(c, r)

	lr.logger.Info("Model training completed.",
		log.OperationKey, log.OperationFit,
		log.R2ScoreKey, lr.R2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns X·w + intercept as a column vector.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}

	nFeatures, _ := lr.state.GetDimensions()
	r, c := X.Dims()
	if c != nFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", nFeatures, c, 1)
	}

	w := mat.NewVecDense(c, lr.Weights)
	predictions := mat.NewVecDense(r, nil)
	predictions.MulVec(X, w)
	for i := 0; i < r; i++ {
		predictions.SetVec(i, predictions.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// Score returns the unweighted R² of the predictions for X against y.
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if err := lr.state.RequireFitted("Score"); err != nil {
		return 0, err
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	yTrue := make([]float64, r)
	pred := make([]float64, r)
	for i := 0; i < r; i++ {
		yTrue[i] = y.At(i, 0)
		pred[i] = yPred.At(i, 0)
	}
	return metrics.R2Score(yTrue, pred)
}

// IsFitted reports whether Fit has succeeded.
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Model returns the fitted coefficients as a LocalModel.
func (lr *LinearRegression) Model() (*model.LocalModel, error) {
	if err := lr.state.RequireFitted("Model"); err != nil {
		return nil, err
	}
	_, n := lr.state.GetDimensions()
	return &model.LocalModel{
		Intercept: lr.Intercept,
		Slopes:    append([]float64(nil), lr.Weights...),
		R2:        lr.R2,
		N:         n,
	}, nil
}
