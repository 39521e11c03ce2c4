package gwr

import (
	"context"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/YuminosukeSato/gwr/core/parallel"
	"github.com/YuminosukeSato/gwr/metrics"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
)

// Residual is the local fit evaluated at one reference point.
type Residual struct {
	// Record is the row of the reference point in the input table.
	Record   int
	Location orb.Point
	Observed float64
	// Fitted, Residual and R2 are NaN when OK is false.
	Fitted   float64
	Residual float64
	R2       float64
	OK       bool
}

// ResidualSummary aggregates the residuals of the points that could be fitted.
type ResidualSummary struct {
	N    int
	RMSE float64
	MAE  float64
	R2   float64
}

// Residuals fits the local model at every valid reference point, the point
// itself included, and compares the fitted value with the observation.
func (d *Driver) Residuals(ctx context.Context) ([]Residual, ResidualSummary, error) {
	if d.state != stateInitialized {
		return nil, ResidualSummary{}, errors.NewValueError("Driver.Residuals", "driver is not initialized")
	}

	start := time.Now()
	out := make([]Residual, len(d.refs))
	rows := (len(d.refs) + pointsPerRow - 1) / pointsPerRow
	cols := min(len(d.refs), pointsPerRow)

	err := parallel.ForRows(ctx, rows, cols, d.cfg.Workers, nil, func(row, col int) {
		i := row*pointsPerRow + col
		if i >= len(d.refs) {
			return
		}
		r := &d.refs[i]
		res := Residual{
			Record:   r.row,
			Location: r.p,
			Observed: r.z,
			Fitted:   math.NaN(),
			Residual: math.NaN(),
			R2:       math.NaN(),
		}
		if r.valid {
			if m, err := d.Evaluate(r.p); err == nil {
				res.Fitted = m.Predict(r.x)
				res.Residual = r.z - res.Fitted
				res.R2 = m.R2
				res.OK = true
			}
		}
		out[i] = res
	})
	if err != nil {
		return nil, ResidualSummary{}, err
	}

	var observed, fitted []float64
	for _, r := range out {
		if r.OK {
			observed = append(observed, r.Observed)
			fitted = append(fitted, r.Fitted)
		}
	}

	summary := ResidualSummary{N: len(observed)}
	if summary.N > 0 {
		if summary.RMSE, err = metrics.RMSE(observed, fitted); err != nil {
			return nil, ResidualSummary{}, err
		}
		if summary.MAE, err = metrics.MAE(observed, fitted); err != nil {
			return nil, ResidualSummary{}, err
		}
		if summary.R2, err = metrics.R2Score(observed, fitted); err != nil {
			return nil, ResidualSummary{}, err
		}
	}

	d.logger.Info("Residuals computed.",
		log.OperationKey, log.OperationResiduals,
		log.SamplesKey, summary.N,
		log.RMSEKey, summary.RMSE,
		log.R2ScoreKey, summary.R2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, summary, nil
}
