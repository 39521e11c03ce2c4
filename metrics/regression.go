// Package metrics computes goodness-of-fit measures for local and global
// regressions. Weighted variants take a weight per observation; a nil weight
// slice means unit weights.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

func checkPair(op string, yTrue, yPred []float64) error {
	n := len(yTrue)
	if n == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != n {
		return errors.NewDimensionError(op, n, len(yPred), 0)
	}
	return nil
}

func checkWeights(op string, n int, w []float64) error {
	if w != nil && len(w) != n {
		return errors.NewDimensionError(op, n, len(w), 0)
	}
	return nil
}

// WeightedMean returns Σwᵢzᵢ / Σwᵢ.
func WeightedMean(z, w []float64) (float64, error) {
	if len(z) == 0 {
		return 0, errors.NewValueError("WeightedMean", "empty vector")
	}
	if err := checkWeights("WeightedMean", len(z), w); err != nil {
		return 0, err
	}
	if w != nil && floats.Sum(w) <= 0 {
		return 0, errors.NewFitError("WeightedMean", "zero total weight", errors.ErrZeroWeight)
	}
	return stat.Mean(z, w), nil
}

// SumSquares returns the weighted total and residual sums of squares:
// TSS = Σwᵢ(zᵢ - z̄_w)² and RSS = Σwᵢ(zᵢ - ẑᵢ)².
func SumSquares(z, zhat, w []float64) (tss, rss float64, err error) {
	if err := checkPair("SumSquares", z, zhat); err != nil {
		return 0, 0, err
	}
	if err := checkWeights("SumSquares", len(z), w); err != nil {
		return 0, 0, err
	}
	mean, err := WeightedMean(z, w)
	if err != nil {
		return 0, 0, err
	}

	for i := range z {
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		d := z[i] - mean
		r := z[i] - zhat[i]
		tss += wi * d * d
		rss += wi * r * r
	}
	return tss, rss, nil
}

// WeightedR2 returns (TSS - RSS) / TSS. When TSS is zero, that is all
// weighted z values are identical, it returns 0.
func WeightedR2(z, zhat, w []float64) (float64, error) {
	tss, rss, err := SumSquares(z, zhat, w)
	if err != nil {
		return 0, err
	}
	if tss == 0 {
		return 0, nil
	}
	return (tss - rss) / tss, nil
}

// R2Score computes the unweighted coefficient of determination. A constant
// yTrue yields 0 and an UndefinedMetricWarning.
func R2Score(yTrue, yPred []float64) (float64, error) {
	tss, rss, err := SumSquares(yTrue, yPred, nil)
	if err != nil {
		return 0, err
	}
	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "no variance in yTrue", 0))
		return 0, nil
	}
	return 1 - rss/tss, nil
}

// MSE returns the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	d := make([]float64, len(yTrue))
	floats.SubTo(d, yTrue, yPred)
	return floats.Dot(d, d) / float64(len(d)), nil
}

// RMSE returns the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	d := make([]float64, len(yTrue))
	floats.SubTo(d, yTrue, yPred)
	return floats.Norm(d, 1) / float64(len(d)), nil
}
