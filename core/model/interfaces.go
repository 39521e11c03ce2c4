package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is a model trained on a design matrix and a target column.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor predicts a target column from a design matrix.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// SampleFitter fits one local model from weighted samples.
//
// Implementations must not retain samples and must be safe for concurrent
// use: the driver calls Fit from several workers at once.
type SampleFitter interface {
	Fit(samples []Sample) (*LocalModel, error)
}

// SampleFitterFunc adapts a function to SampleFitter.
type SampleFitterFunc func(samples []Sample) (*LocalModel, error)

// Fit calls f(samples).
func (f SampleFitterFunc) Fit(samples []Sample) (*LocalModel, error) {
	return f(samples)
}
