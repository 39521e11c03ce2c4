package errors

import (
	"math"
)

// IsFinite reports whether v is neither NaN nor Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, index int) error {
	for _, v := range values {
		if !IsFinite(v) {
			return NewNumericalInstabilityError(operation, values, index)
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	var unstableValues []float64

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if !IsFinite(v) {
				unstableValues = append(unstableValues, v)
				if len(unstableValues) >= 10 {
					break
				}
			}
		}
		if len(unstableValues) > 0 {
			return NewNumericalInstabilityError(operation, unstableValues, i)
		}
	}

	return nil
}

// StabilizeExp computes exp with protection against overflow.
// Clips the input to prevent exp from returning Inf.
func StabilizeExp(value float64) float64 {
	const maxExp = 700.0
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}
