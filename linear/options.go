package linear

import "github.com/YuminosukeSato/gwr/pkg/log"

// Option is a function that configures LinearRegression
type Option func(*LinearRegression)

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithSampleWeights fits by weighted least squares with one weight per row.
func WithSampleWeights(w []float64) Option {
	return func(lr *LinearRegression) {
		lr.sampleWeights = w
	}
}

// WithLogger replaces the default "linear" logger.
func WithLogger(l log.Logger) Option {
	return func(lr *LinearRegression) {
		lr.logger = l
	}
}
