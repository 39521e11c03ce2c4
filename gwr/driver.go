// Package gwr evaluates geographically weighted regressions.
//
// A Driver is configured once, initialized with a table of reference points,
// and then run over one or more target domains. At every target location it
// selects neighboring reference points, weights them by distance, fits a
// local weighted least squares model and writes the intercept, one slope per
// predictor and the local R². Locations that cannot be fitted are written as
// no-data; they never abort the run.
//
//	d := gwr.New(cfg)
//	if err := d.Initialize(points); err != nil {
//		return err
//	}
//	defer d.Finalize()
//	target := gwr.NewGridTarget(sys)
//	res, err := d.Run(ctx, target)
package gwr

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/core/parallel"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/linear"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
	"github.com/YuminosukeSato/gwr/spatial"
)

type driverState int

const (
	stateNew driverState = iota
	stateInitialized
	stateFinalized
)

// reference is one usable record of the input table.
type reference struct {
	row int
	p   orb.Point
	z float64
	x []float64
	// valid is false when a predictor is no-data; such points are indexed but
	// never contribute to a fit.
	valid bool
}

// Driver runs the regression over target domains. Run may be called several
// times between Initialize and Finalize, but not concurrently.
type Driver struct {
	cfg    Config
	logger log.Logger
	solver model.SampleFitter
	state  driverState

	refs    []reference
	index   *spatial.Index
	extent  orb.Bound
	skipped int
}

// Result summarises one Run.
type Result struct {
	// Completed is false when the run was cancelled; outputs of unvisited
	// rows are then undefined.
	Completed bool
	Locations int
	Produced  int
	NoData    int
	Duration  time.Duration
}

// New creates a driver. The configuration is validated by Initialize.
func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("gwr")
	}
	solver := cfg.Solver
	if solver == nil {
		solver = linear.WeightedLeastSquares{}
	}
	return &Driver{
		cfg:    cfg,
		solver: solver,
		logger: logger.With(
			log.ModelNameKey, "GWR",
			log.ComponentKey, "gwr",
			log.KernelKey, string(cfg.Weighting.Kernel),
			log.BandwidthKey, cfg.Weighting.Bandwidth,
		),
	}
}

// Initialize validates the configuration against table, builds the reference
// point set and, for bounded searches, the spatial index. Records whose
// dependent value is no-data are discarded.
func (d *Driver) Initialize(table dataset.PointTable) (err error) {
	defer errors.Recover(&err, "Driver.Initialize")

	if d.state != stateNew {
		return errors.NewValueError("Driver.Initialize", "driver already initialized")
	}
	if err := d.initialize(table); err != nil {
		code := log.ErrorInvalidConfig
		var ce *errors.ConstructionError
		if errors.As(err, &ce) {
			code = log.ErrorConstruction
		}
		d.logger.Error("Initialize failed.",
			log.OperationKey, log.OperationInitialize,
			log.ErrorCodeKey, code,
			log.ErrAttrKey, err,
		)
		return err
	}

	d.state = stateInitialized
	mode := "global"
	if d.index != nil {
		mode = "local"
	}
	d.logger.Info("Reference points ready.",
		log.OperationKey, log.OperationInitialize,
		log.SamplesKey, len(d.refs),
		log.SkippedKey, d.skipped,
		log.FeaturesKey, len(d.cfg.Predictors),
		log.SearchModeKey, mode,
		log.DirectionKey, d.cfg.Search.Direction.String(),
	)
	return nil
}

func (d *Driver) initialize(table dataset.PointTable) error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if table == nil {
		return errors.NewValidationError("points", "no reference table", nil)
	}

	dep := table.FieldIndex(d.cfg.Dependent)
	if dep < 0 {
		return errors.NewValidationError("dependent", "field not found", d.cfg.Dependent)
	}

	fields := make([]int, len(d.cfg.Predictors))
	grids := make([]dataset.Grid, len(d.cfg.Predictors))
	for j, name := range d.cfg.Predictors {
		if g, ok := d.cfg.PredictorGrids[name]; ok {
			grids[j] = g
			fields[j] = -1
			continue
		}
		fields[j] = table.FieldIndex(name)
		if fields[j] < 0 {
			return errors.NewValidationError("predictors", "field not found", name)
		}
	}

	refs := make([]reference, 0, table.Len())
	skipped := 0
	for i := 0; i < table.Len(); i++ {
		z, ok := table.Value(i, dep)
		if !ok || !errors.IsFinite(z) {
			skipped++
			continue
		}
		p := table.Location(i)
		r := reference{row: i, p: p, z: z, x: make([]float64, len(fields)), valid: true}
		for j := range fields {
			var v float64
			if grids[j] != nil {
				v, ok = grids[j].Sample(p, d.cfg.Interpolation)
			} else {
				v, ok = table.Value(i, fields[j])
			}
			if !ok || !errors.IsFinite(v) {
				r.valid = false
			}
			r.x[j] = v
		}
		refs = append(refs, r)
	}

	if len(refs) == 0 {
		return errors.NewConstructionError("reference point set", "no record has a valid dependent value")
	}

	points := make([]orb.Point, len(refs))
	for i := range refs {
		points[i] = refs[i].p
	}
	if !d.cfg.Search.Global() {
		index, err := spatial.NewIndex(points)
		if err != nil {
			return err
		}
		d.index = index
	}

	d.refs = refs
	d.skipped = skipped
	d.extent = orb.MultiPoint(points).Bound()
	return nil
}

// predictorGrids returns the predictor grids in predictor order when every
// predictor has one, otherwise nil.
func (d *Driver) predictorGrids() []dataset.Grid {
	if len(d.cfg.PredictorGrids) != len(d.cfg.Predictors) {
		return nil
	}
	grids := make([]dataset.Grid, len(d.cfg.Predictors))
	for j, name := range d.cfg.Predictors {
		g, ok := d.cfg.PredictorGrids[name]
		if !ok {
			return nil
		}
		grids[j] = g
	}
	return grids
}

// Extent returns the bounding box of the reference points.
func (d *Driver) Extent() orb.Bound {
	return d.extent
}

// References returns the number of reference points kept by Initialize.
func (d *Driver) References() int {
	return len(d.refs)
}

// Run evaluates every location of target. Rows are processed in order and
// the locations of a row in parallel. A cancelled run returns a Result with
// Completed false and an error wrapping errors.ErrCancelled.
func (d *Driver) Run(ctx context.Context, target Target) (*Result, error) {
	if d.state != stateInitialized {
		return nil, errors.NewValueError("Driver.Run", "driver is not initialized")
	}
	if target == nil {
		return nil, errors.NewValidationError("target", "no target domain", nil)
	}

	if err := target.begin(d); err != nil {
		d.logger.Error("Run failed.", log.OperationKey, log.OperationEvaluate, log.ErrorCodeKey, log.ErrorInvalidConfig, log.ErrAttrKey, err)
		return nil, err
	}
	if tb := target.bounds(); !tb.Intersects(d.extent) {
		err := errors.NewValidationError("target", "target domain does not intersect the reference points", tb)
		d.logger.Error("Run failed.", log.OperationKey, log.OperationEvaluate, log.ErrorCodeKey, log.ErrorInvalidConfig, log.ErrAttrKey, err)
		return nil, err
	}

	rows, cols := target.layout()
	workers := parallel.Workers(d.cfg.Workers)
	start := time.Now()
	d.logger.Info("Run started.",
		log.OperationKey, log.OperationEvaluate,
		log.LocationsKey, rows*cols,
		log.WorkersKey, workers,
	)

	var locations, produced, noData atomic.Int64
	err := parallel.ForRows(ctx, rows, cols, workers, d.cfg.Progress, func(row, col int) {
		p, ok := target.location(row, col)
		if !ok {
			return
		}
		locations.Add(1)

		m, err := d.Evaluate(p)
		if err != nil {
			target.noData(row, col)
			noData.Add(1)
			return
		}
		target.write(row, col, m)
		produced.Add(1)
	})

	res := &Result{
		Completed: err == nil,
		Locations: int(locations.Load()),
		Produced:  int(produced.Load()),
		NoData:    int(noData.Load()),
		Duration:  time.Since(start),
	}
	if err != nil {
		d.logger.Warn("Run cancelled, output is incomplete.",
			log.OperationKey, log.OperationEvaluate,
			log.ErrorCodeKey, log.ErrorCancelled,
			log.ProducedKey, res.Produced,
			log.NoDataKey, res.NoData,
			log.DurationMsKey, res.Duration.Milliseconds(),
		)
		return res, err
	}

	d.logger.Info("Run completed.",
		log.OperationKey, log.OperationEvaluate,
		log.LocationsKey, res.Locations,
		log.ProducedKey, res.Produced,
		log.NoDataKey, res.NoData,
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res, nil
}

// Evaluate fits the local model at p. It fails when fewer than
// Search.MinCount valid neighbors are found (the solver is not called) or
// when the solver fails. Panics inside the solver are returned as errors.
func (d *Driver) Evaluate(p orb.Point) (*model.LocalModel, error) {
	if d.state != stateInitialized {
		return nil, errors.NewValueError("Driver.Evaluate", "driver is not initialized")
	}

	samples := d.assemble(p)
	if len(samples) < d.cfg.Search.MinCount {
		return nil, errors.NewFitError("gwr.Evaluate", "insufficient neighbors",
			errors.Wrapf(errors.ErrInsufficientSamples, "%d of %d required", len(samples), d.cfg.Search.MinCount))
	}

	var m *model.LocalModel
	err := errors.SafeExecute("gwr.Evaluate", func() error {
		var err error
		m, err = d.solver.Fit(samples)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewFitError("gwr.Evaluate", "no model", errors.ErrSingularMatrix)
	}
	return m, nil
}

// assemble collects the weighted valid neighbors of p. Samples share the
// reference predictor slices, which solvers must not modify.
func (d *Driver) assemble(p orb.Point) []model.Sample {
	var neighbors []spatial.Neighbor
	if d.index == nil {
		neighbors = make([]spatial.Neighbor, len(d.refs))
		for i := range d.refs {
			neighbors[i] = spatial.Neighbor{Index: i, Distance: planar.Distance(p, d.refs[i].p)}
		}
	} else {
		neighbors = d.index.Select(p, d.cfg.Search.query())
	}

	samples := make([]model.Sample, 0, len(neighbors))
	for _, n := range neighbors {
		r := &d.refs[n.Index]
		if !r.valid {
			continue
		}
		samples = append(samples, model.Sample{
			Z: r.z,
			X: r.x,
			W: d.cfg.Weighting.Weight(n.Distance),
		})
	}
	return samples
}

// GlobalModel fits one ordinary least squares model to all valid reference
// points.
func (d *Driver) GlobalModel() (*model.LocalModel, error) {
	if d.state != stateInitialized {
		return nil, errors.NewValueError("Driver.GlobalModel", "driver is not initialized")
	}

	var X, z []float64
	n := 0
	for _, r := range d.refs {
		if !r.valid {
			continue
		}
		X = append(X, r.x...)
		z = append(z, r.z)
		n++
	}
	if n == 0 {
		return nil, errors.NewModelError("Driver.GlobalModel", "empty data", errors.ErrEmptyData)
	}

	lr := linear.NewLinearRegression(linear.WithLogger(d.logger))
	if err := lr.Fit(mat.NewDense(n, len(d.cfg.Predictors), X), mat.NewDense(n, 1, z)); err != nil {
		return nil, err
	}
	return lr.Model()
}

// Finalize releases the reference set and the spatial index. The driver
// cannot be used afterwards.
func (d *Driver) Finalize() {
	if d.state == stateFinalized {
		return
	}
	d.index = nil
	d.refs = nil
	d.state = stateFinalized
	d.logger.Debug("Driver finalized.", log.OperationKey, log.OperationFinalize)
}
