// Package model holds the fitted-model types shared by the solvers and the
// evaluation driver.
package model

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Sample is one weighted observation: dependent value Z, predictor values X
// and weight W.
type Sample struct {
	Z float64
	X []float64
	W float64
}

// LocalModel is the regression fitted at a single target location. It is
// created per location and never shared between locations.
type LocalModel struct {
	Intercept float64
	Slopes    []float64
	// R2 is the weighted coefficient of determination, 0 when the weighted
	// total sum of squares is zero.
	R2 float64
	// N is the number of samples used in the fit.
	N int
}

// Predict evaluates the model for predictor values x.
func (m *LocalModel) Predict(x []float64) float64 {
	v := m.Intercept
	for i, s := range m.Slopes {
		v += s * x[i]
	}
	return v
}

// Coefficients returns intercept followed by the slopes.
func (m *LocalModel) Coefficients() []float64 {
	c := make([]float64, 0, len(m.Slopes)+1)
	c = append(c, m.Intercept)
	return append(c, m.Slopes...)
}

func (m *LocalModel) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "z = %.6g", m.Intercept)
	for i, s := range m.Slopes {
		fmt.Fprintf(&b, " %+.6g*x%d", s, i+1)
	}
	fmt.Fprintf(&b, " (r2=%.4f, n=%d)", m.R2, m.N)
	return b.String()
}

// MarshalZerologObject adds the model fields to a zerolog event.
func (m *LocalModel) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("intercept", m.Intercept).
		Floats64("slopes", m.Slopes).
		Float64("r2", m.R2).
		Int("n", m.N)
}
