package gwr

import (
	"math"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/core/parallel"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
	"github.com/YuminosukeSato/gwr/spatial"
	"github.com/YuminosukeSato/gwr/weighting"
)

// Search is the neighbor selection policy.
type Search struct {
	// Radius limits the search distance, 0 for unbounded.
	Radius float64
	// MaxCount limits the number of neighbors, per quadrant in quadrant mode.
	// 0 for unbounded.
	MaxCount int
	// MinCount is the number of valid neighbors required to attempt a fit.
	// Locations with fewer are written as no-data without calling the solver.
	MinCount int
	// Direction is all-direction or quadrant search.
	Direction spatial.Direction
}

// Global reports whether every reference point is a neighbor of every
// location, in which case no spatial index is built.
func (s Search) Global() bool {
	return s.Radius <= 0 && s.MaxCount <= 0
}

func (s Search) query() spatial.Query {
	return spatial.Query{MaxCount: s.MaxCount, Radius: s.Radius, Direction: s.Direction}
}

// Config holds everything one run needs. It is validated once by
// Driver.Initialize.
type Config struct {
	// Dependent is the field holding the dependent variable.
	Dependent string
	// Predictors are the explanatory variables, in output order.
	Predictors []string
	// PredictorGrids maps predictor names to rasters sampled at each
	// reference point. Predictors without a grid are read from the table.
	PredictorGrids map[string]dataset.Grid
	// Interpolation is used to sample PredictorGrids.
	Interpolation dataset.Interpolation

	Weighting weighting.Config
	Search    Search

	// Workers is the number of goroutines per row. 0 uses one per CPU core,
	// 1 evaluates sequentially.
	Workers int
	// Progress is called once per row and may stop the run.
	Progress parallel.Progress

	Logger log.Logger
	// Solver fits each local model. Nil uses linear.WeightedLeastSquares.
	Solver model.SampleFitter
}

// DefaultConfig returns a global Gaussian configuration. Dependent and
// Predictors must still be set.
func DefaultConfig() Config {
	return Config{
		Interpolation: dataset.BSpline,
		Weighting:     weighting.DefaultConfig(),
		Search:        Search{Direction: spatial.All},
	}
}

// Validate checks the configuration without looking at any data.
func (c Config) Validate() error {
	if c.Dependent == "" {
		return errors.NewValidationError("dependent", "dependent field is not set", c.Dependent)
	}
	if len(c.Predictors) == 0 {
		return errors.NewValidationError("predictors", "no predictors selected", c.Predictors)
	}
	if dup := lo.FindDuplicates(c.Predictors); len(dup) > 0 {
		return errors.NewValidationError("predictors", "duplicate predictor", dup[0])
	}
	if lo.Contains(c.Predictors, c.Dependent) {
		return errors.NewValidationError("predictors", "dependent field used as predictor", c.Dependent)
	}
	if lo.Contains(c.Predictors, "") {
		return errors.NewValidationError("predictors", "empty predictor name", c.Predictors)
	}
	for name, g := range c.PredictorGrids {
		if !lo.Contains(c.Predictors, name) {
			return errors.NewValidationError("predictor_grids", "grid for unselected predictor", name)
		}
		if g == nil {
			return errors.NewValidationError("predictor_grids", "nil grid", name)
		}
	}
	if err := c.Weighting.Validate(); err != nil {
		return err
	}
	if c.Search.Radius < 0 || math.IsNaN(c.Search.Radius) || math.IsInf(c.Search.Radius, 0) {
		return errors.NewValidationError("search.radius", "must be zero or a positive finite distance", c.Search.Radius)
	}
	if c.Search.MaxCount < 0 {
		return errors.NewValidationError("search.max_points", "must not be negative", c.Search.MaxCount)
	}
	if c.Search.MinCount < 0 {
		return errors.NewValidationError("search.min_points", "must not be negative", c.Search.MinCount)
	}
	if c.Search.Direction != spatial.All && c.Search.Direction != spatial.Quadrant {
		return errors.NewValidationError("search.direction", "unknown direction", c.Search.Direction)
	}
	if c.Workers < 0 {
		return errors.NewValidationError("workers", "must not be negative", c.Workers)
	}
	return nil
}
