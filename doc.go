// Package gwr is a geographically weighted regression engine for Go.
//
// For every target location, a cell center of a raster or a record of a
// point table, the engine selects reference points around it, weights them
// by distance and fits a weighted least squares model. The local intercept,
// one slope per predictor and the local R² are written to the target.
// Locations where no model can be fitted are written as no-data.
//
// # Quick Start
//
//	cfg := gwr.DefaultConfig()
//	cfg.Dependent = "rainfall"
//	cfg.Predictors = []string{"elevation"}
//	cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 5000}
//	cfg.Search = gwr.Search{MaxCount: 30, MinCount: 5}
//
//	d := gwr.New(cfg)
//	if err := d.Initialize(stations); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Finalize()
//
//	sys, _ := dataset.NewGridSystem(d.Extent(), 1000)
//	target := gwr.NewGridTarget(sys)
//	res, err := d.Run(ctx, target)
//
// # Packages
//
//   - gwr: Driver, configuration and targets
//   - spatial: k-d tree neighbor search with radius, count and quadrant limits
//   - weighting: Distance kernels (uniform, linear, inverse distance, exponential, Gaussian)
//   - linear: Weighted least squares solver and a global LinearRegression
//   - dataset: Point tables, grids, interpolation, CSV and ESRI ASCII I/O
//   - metrics: Weighted mean, R², RMSE and MAE
//   - config: YAML configuration with environment overrides
//   - render: Heat maps and residual plots
//   - core/parallel: Row-wise parallel evaluation with cancellation
//   - pkg/errors, pkg/log: Error taxonomy and structured logging
//
// The gwr command in cmd/gwr runs the engine from a configuration file.
//
// # Performance
//
// Rows of a target are evaluated in order and the locations of a row in
// parallel. Results do not depend on the number of workers: neighbors are
// ordered by distance and then by input order.
package gwr
