package gwr

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/linear"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
	"github.com/YuminosukeSato/gwr/spatial"
	"github.com/YuminosukeSato/gwr/weighting"
)

func quietLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

// table builds a point table with fields z and a.
func table(t *testing.T, rows ...[4]float64) *dataset.MemoryTable {
	t.Helper()
	tbl := dataset.NewMemoryTable("z", "a")
	for _, r := range rows {
		require.NoError(t, tbl.Append(orb.Point{r[0], r[1]}, r[2], r[3]))
	}
	return tbl
}

func threePoints(t *testing.T) *dataset.MemoryTable {
	// (x, y, z, a) with a equal to the x coordinate
	return table(t,
		[4]float64{0, 0, 1, 0},
		[4]float64{1, 0, 2, 1},
		[4]float64{0, 1, 3, 0},
	)
}

func uniformConfig() Config {
	cfg := DefaultConfig()
	cfg.Dependent = "z"
	cfg.Predictors = []string{"a"}
	cfg.Weighting = weighting.Config{Kernel: weighting.None}
	cfg.Workers = 1
	cfg.Logger = quietLogger()
	return cfg
}

// randomTable samples z = 1 + 0.5·a + 0.02·x·a + noise on a 100x100 square.
func randomTable(t testing.TB, n int, seed uint64) *dataset.MemoryTable {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e37))
	tbl := dataset.NewMemoryTable("z", "a")
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		a := rng.Float64() * 10
		z := 1 + 0.5*a + 0.02*x*a + rng.NormFloat64()*0.1
		require.NoError(t, tbl.Append(orb.Point{x, y}, z, a))
	}
	return tbl
}

func gridOver(t testing.TB, minX, minY, maxX, maxY, cell float64) dataset.GridSystem {
	t.Helper()
	sys, err := dataset.NewGridSystem(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}, cell)
	require.NoError(t, err)
	return sys
}

func TestThreePointOrdinaryLeastSquares(t *testing.T) {
	d := New(uniformConfig())
	require.NoError(t, d.Initialize(threePoints(t)))
	defer d.Finalize()

	// normal equations: [[3,1],[1,1]]·b = [6,2]  =>  intercept 2, slope 0
	m, err := d.Evaluate(orb.Point{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Intercept, 1e-9)
	assert.InDelta(t, 0.0, m.Slopes[0], 1e-9)
	assert.InDelta(t, 0.0, m.R2, 1e-9)
	assert.Equal(t, 3, m.N)

	targets := dataset.NewMemoryTable()
	require.NoError(t, targets.Append(orb.Point{0, 0}))
	res, err := d.Run(context.Background(), NewPointTarget(targets))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Produced)

	v, ok := targets.Value(0, targets.FieldIndex(FieldIntercept))
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)
	v, ok = targets.Value(0, targets.FieldIndex(SlopeField("a")))
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
	_, ok = targets.Value(0, targets.FieldIndex(FieldR2))
	assert.True(t, ok)
}

func TestMinimumNeighborsWritesNoData(t *testing.T) {
	tbl := table(t,
		[4]float64{0, 0, 1, 0},
		[4]float64{1, 0, 2, 1},
		[4]float64{0, 1, math.NaN(), 0},
	)

	var calls atomic.Int32
	cfg := uniformConfig()
	cfg.Search.MinCount = 4
	cfg.Workers = 3
	cfg.Solver = model.SampleFitterFunc(func(s []model.Sample) (*model.LocalModel, error) {
		calls.Add(1)
		return linear.WeightedLeastSquares{}.Fit(s)
	})

	d := New(cfg)
	require.NoError(t, d.Initialize(tbl))
	assert.Equal(t, 2, d.References())

	target := NewGridTarget(gridOver(t, 0, 0, 1, 1, 0.25))
	res, err := d.Run(context.Background(), target)
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, 16, res.Locations)
	assert.Equal(t, 0, res.Produced)
	assert.Equal(t, 16, res.NoData)
	assert.EqualValues(t, 0, calls.Load(), "solver must not run below the minimum")

	for _, g := range target.MemoryGrids() {
		assert.Equal(t, 16, g.NoDataCount(), g.Name)
	}
}

func TestMinimumNeighborsBoundedSearch(t *testing.T) {
	var calls atomic.Int32
	cfg := uniformConfig()
	cfg.Search = Search{Radius: 1.5, MinCount: 3}
	cfg.Solver = model.SampleFitterFunc(func(s []model.Sample) (*model.LocalModel, error) {
		calls.Add(1)
		assert.GreaterOrEqual(t, len(s), 3)
		return linear.WeightedLeastSquares{}.Fit(s)
	})

	d := New(cfg)
	require.NoError(t, d.Initialize(threePoints(t)))

	// all three points are within 1.5 of (0,0), none within 1.5 of (5,5)
	_, err := d.Evaluate(orb.Point{0, 0})
	require.NoError(t, err)
	_, err = d.Evaluate(orb.Point{5, 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientSamples))
	assert.EqualValues(t, 1, calls.Load())
}

func TestGaussianBandwidthConcentratesOnNearest(t *testing.T) {
	// z at x = 0..4 along a line, predictor a equals x
	tbl := table(t,
		[4]float64{0, 0, 5, 0},
		[4]float64{1, 0, 1, 1},
		[4]float64{2, 0, 8, 2},
		[4]float64{3, 0, 2, 3},
		[4]float64{4, 0, 7, 4},
	)

	intercept := func(bandwidth float64) float64 {
		cfg := uniformConfig()
		cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: bandwidth}
		d := New(cfg)
		require.NoError(t, d.Initialize(tbl))
		defer d.Finalize()
		m, err := d.Evaluate(orb.Point{0, 0})
		require.NoError(t, err, "bandwidth %g", bandwidth)
		return m.Intercept
	}

	wide := math.Abs(intercept(2) - 5)
	assert.Greater(t, wide, 0.1)
	// at 0.05 the nearest neighbor weighs exp(-200) and the rest zero
	for _, bw := range []float64{0.2, 0.1, 0.05} {
		narrow := math.Abs(intercept(bw) - 5)
		assert.Less(t, narrow, 1e-6, "bandwidth %g", bw)
		assert.Less(t, narrow, wide)
	}
}

func TestInverseDistanceAtReferencePoint(t *testing.T) {
	tbl := randomTable(t, 30, 11)
	cfg := uniformConfig()
	cfg.Weighting = weighting.Config{Kernel: weighting.InverseDistance, Power: 2}
	cfg.Workers = 3
	d := New(cfg)
	require.NoError(t, d.Initialize(tbl))
	defer d.Finalize()

	// the point itself carries weight 1e24, the others about 1e-4
	for i := 0; i < tbl.Len(); i += 7 {
		m, err := d.Evaluate(tbl.Location(i))
		require.NoError(t, err, "record %d", i)
		z, _ := tbl.Value(i, 0)
		a, _ := tbl.Value(i, 1)
		assert.InDelta(t, z, m.Predict([]float64{a}), 1e-6)
	}

	residuals, summary, err := d.Residuals(context.Background())
	require.NoError(t, err)
	require.Len(t, residuals, 30)
	assert.Equal(t, 30, summary.N)
	assert.Less(t, summary.RMSE, 1e-6)
	for _, r := range residuals {
		assert.True(t, r.OK, "record %d", r.Record)
	}
}

func TestDeterministicRuns(t *testing.T) {
	tbl := randomTable(t, 300, 1)
	sys := gridOver(t, 0, 0, 100, 100, 5)

	run := func(workers int) []*dataset.MemoryGrid {
		cfg := uniformConfig()
		cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 15}
		cfg.Search = Search{MaxCount: 24, MinCount: 8, Direction: spatial.Quadrant}
		cfg.Workers = workers
		d := New(cfg)
		require.NoError(t, d.Initialize(tbl))
		defer d.Finalize()

		target := NewGridTarget(sys)
		res, err := d.Run(context.Background(), target)
		require.NoError(t, err)
		require.Equal(t, sys.Len(), res.Locations)
		return target.MemoryGrids()
	}

	first, second, parallel := run(1), run(1), run(4)
	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, bits(first[i].Data()), bits(second[i].Data()), first[i].Name)
		assert.Equal(t, bits(first[i].Data()), bits(parallel[i].Data()), first[i].Name)
	}
}

func bits(v []float64) []uint64 {
	out := make([]uint64, len(v))
	for i := range v {
		out[i] = math.Float64bits(v[i])
	}
	return out
}

func TestGlobalAndUnboundedSearchAgree(t *testing.T) {
	tbl := randomTable(t, 80, 7)

	global := uniformConfig()
	global.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 30}
	dg := New(global)
	require.NoError(t, dg.Initialize(tbl))
	assert.Nil(t, dg.index)

	bounded := global
	bounded.Search = Search{MaxCount: 1000}
	db := New(bounded)
	require.NoError(t, db.Initialize(tbl))
	assert.NotNil(t, db.index)

	for _, p := range []orb.Point{{0, 0}, {50, 50}, {99, 3}} {
		assert.Len(t, dg.assemble(p), 80)
		assert.Len(t, db.assemble(p), 80)

		mg, err := dg.Evaluate(p)
		require.NoError(t, err)
		mb, err := db.Evaluate(p)
		require.NoError(t, err)
		assert.InDelta(t, mg.Intercept, mb.Intercept, 1e-9)
		assert.InDelta(t, mg.Slopes[0], mb.Slopes[0], 1e-9)
		assert.InDelta(t, mg.R2, mb.R2, 1e-9)
	}
}

func TestNoDataPredictorsAreSkipped(t *testing.T) {
	tbl := table(t,
		[4]float64{0, 0, 1, 0},
		[4]float64{1, 0, 2, 1},
		[4]float64{0, 1, 3, 0},
		[4]float64{1, 1, 100, math.NaN()},
	)
	d := New(uniformConfig())
	require.NoError(t, d.Initialize(tbl))
	assert.Equal(t, 4, d.References())
	assert.Len(t, d.assemble(orb.Point{0, 0}), 3)

	m, err := d.Evaluate(orb.Point{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Intercept, 1e-9)
}

func TestCancellation(t *testing.T) {
	tbl := randomTable(t, 50, 3)
	sys := gridOver(t, 0, 0, 100, 100, 10)

	cfg := uniformConfig()
	cfg.Progress = func(row, rows int) bool { return row < 2 }
	d := New(cfg)
	require.NoError(t, d.Initialize(tbl))

	target := NewGridTarget(sys)
	res, err := d.Run(context.Background(), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCancelled))
	require.NotNil(t, res)
	assert.False(t, res.Completed)
	assert.Equal(t, 2*sys.Cols, res.Locations)

	intercept := target.Intercept.(*dataset.MemoryGrid)
	_, ok := intercept.Value(0, 1)
	assert.True(t, ok)
	_, ok = intercept.Value(0, 2)
	assert.False(t, ok, "unvisited rows are left untouched")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.Progress = nil
	d2 := New(cfg)
	require.NoError(t, d2.Initialize(tbl))
	res, err = d2.Run(ctx, NewGridTarget(sys))
	assert.True(t, errors.Is(err, errors.ErrCancelled))
	assert.Zero(t, res.Locations)
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"no dependent", func(c *Config) { c.Dependent = "" }, "dependent"},
		{"no predictors", func(c *Config) { c.Predictors = nil }, "predictors"},
		{"duplicate predictor", func(c *Config) { c.Predictors = []string{"a", "a"} }, "predictors"},
		{"dependent as predictor", func(c *Config) { c.Predictors = []string{"z"} }, "predictors"},
		{"unknown dependent", func(c *Config) { c.Dependent = "elevation" }, "dependent"},
		{"unknown predictor", func(c *Config) { c.Predictors = []string{"b"} }, "predictors"},
		{"bad bandwidth", func(c *Config) { c.Weighting = weighting.Config{Kernel: weighting.Gaussian} }, "weighting.bandwidth"},
		{"negative radius", func(c *Config) { c.Search.Radius = -1 }, "search.radius"},
		{"negative count", func(c *Config) { c.Search.MaxCount = -1 }, "search.max_points"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := uniformConfig()
			tt.mutate(&cfg)
			err := New(cfg).Initialize(threePoints(t))
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestShortOutputTableIsConfigurationError(t *testing.T) {
	cfg := uniformConfig()
	cfg.Workers = 2
	d := New(cfg)
	require.NoError(t, d.Initialize(threePoints(t)))

	points := table(t, [4]float64{0, 0, 0, 0}, [4]float64{1, 1, 0, 0})
	short := dataset.NewMemoryTable("id")
	require.NoError(t, short.Append(orb.Point{0, 0}, 1))

	var res *Result
	var err error
	require.NotPanics(t, func() {
		res, err = d.Run(context.Background(), &PointTarget{Points: points, Output: short})
	})
	require.Error(t, err)
	assert.Nil(t, res)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "target", ve.ParamName)
	assert.Equal(t, 1, short.FieldCount(), "no fields are added to a rejected output")
}

func TestConstructionError(t *testing.T) {
	tbl := table(t, [4]float64{0, 0, math.NaN(), 1})
	for _, search := range []Search{{}, {MaxCount: 4}} {
		cfg := uniformConfig()
		cfg.Search = search
		err := New(cfg).Initialize(tbl)
		var ce *errors.ConstructionError
		assert.True(t, errors.As(err, &ce), "got %v", err)
	}
}

func TestDisjointTargetIsConfigurationError(t *testing.T) {
	d := New(uniformConfig())
	require.NoError(t, d.Initialize(threePoints(t)))

	_, err := d.Run(context.Background(), NewGridTarget(gridOver(t, 100, 100, 110, 110, 1)))
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "target", ve.ParamName)
}

func TestDriverStates(t *testing.T) {
	d := New(uniformConfig())
	_, err := d.Run(context.Background(), NewGridTarget(gridOver(t, 0, 0, 1, 1, 1)))
	assert.Error(t, err)

	require.NoError(t, d.Initialize(threePoints(t)))
	assert.Error(t, d.Initialize(threePoints(t)))

	d.Finalize()
	d.Finalize()
	_, err = d.Evaluate(orb.Point{0, 0})
	assert.Error(t, err)
	_, _, err = d.Residuals(context.Background())
	assert.Error(t, err)
}

func TestSolverPanicIsLocal(t *testing.T) {
	cfg := uniformConfig()
	cfg.Solver = model.SampleFitterFunc(func(s []model.Sample) (*model.LocalModel, error) {
		panic("boom")
	})
	d := New(cfg)
	require.NoError(t, d.Initialize(threePoints(t)))

	res, err := d.Run(context.Background(), NewGridTarget(gridOver(t, 0, 0, 1, 1, 0.5)))
	require.NoError(t, err)
	assert.Equal(t, 4, res.NoData)

	_, err = d.Evaluate(orb.Point{0, 0})
	var pe *errors.PanicError
	assert.True(t, errors.As(err, &pe))
}

func TestPredictorGridsAndPrediction(t *testing.T) {
	// predictor grid a(x, y) = x on 0..10, z = 2 + 3a at the reference points
	sys := gridOver(t, 0, 0, 10, 10, 1)
	a := dataset.NewMemoryGrid(sys)
	for row := 0; row < sys.Rows; row++ {
		for col := 0; col < sys.Cols; col++ {
			a.SetValue(col, row, sys.CellCenter(col, row)[0])
		}
	}

	rng := rand.New(rand.NewPCG(5, 6))
	tbl := dataset.NewMemoryTable("z")
	for i := 0; i < 40; i++ {
		x, y := 1+rng.Float64()*8, 1+rng.Float64()*8
		require.NoError(t, tbl.Append(orb.Point{x, y}, 2+3*x))
	}

	cfg := uniformConfig()
	cfg.PredictorGrids = map[string]dataset.Grid{"a": a}
	cfg.Interpolation = dataset.Bilinear
	cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 3}
	cfg.Workers = 0

	d := New(cfg)
	require.NoError(t, d.Initialize(tbl))

	target := NewGridTarget(gridOver(t, 2, 2, 8, 8, 1))
	res, err := d.Run(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 36, res.Produced)
	require.NotNil(t, target.Prediction)
	assert.Len(t, target.MemoryGrids(), 4)

	slope := target.Slopes[0].(*dataset.MemoryGrid)
	prediction := target.Prediction.(*dataset.MemoryGrid)
	for row := 0; row < target.System.Rows; row++ {
		for col := 0; col < target.System.Cols; col++ {
			s, ok := slope.Value(col, row)
			require.True(t, ok)
			assert.InDelta(t, 3.0, s, 1e-6)

			p, ok := prediction.Value(col, row)
			require.True(t, ok)
			assert.InDelta(t, 2+3*target.System.CellCenter(col, row)[0], p, 1e-6)
		}
	}
}

func TestResidualsAndGlobalModel(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	tbl := dataset.NewMemoryTable("z", "a")
	for i := 0; i < 60; i++ {
		x, y, a := rng.Float64()*50, rng.Float64()*50, rng.Float64()*4
		require.NoError(t, tbl.Append(orb.Point{x, y}, 4-1.5*a, a))
	}
	require.NoError(t, tbl.Append(orb.Point{10, 10}, math.NaN(), 1))
	require.NoError(t, tbl.Append(orb.Point{20, 20}, 3, math.NaN()))

	cfg := uniformConfig()
	cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 10}
	cfg.Search = Search{MaxCount: 20, MinCount: 5}
	cfg.Workers = 4
	d := New(cfg)
	require.NoError(t, d.Initialize(tbl))
	assert.Equal(t, 61, d.References())

	residuals, summary, err := d.Residuals(context.Background())
	require.NoError(t, err)
	require.Len(t, residuals, 61)
	assert.Equal(t, 60, summary.N)
	assert.InDelta(t, 0.0, summary.RMSE, 1e-6)
	assert.InDelta(t, 0.0, summary.MAE, 1e-6)
	assert.InDelta(t, 1.0, summary.R2, 1e-9)

	last := residuals[60]
	assert.Equal(t, 61, last.Record)
	assert.False(t, last.OK)
	assert.True(t, math.IsNaN(last.Fitted))

	global, err := d.GlobalModel()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, global.Intercept, 1e-9)
	assert.InDelta(t, -1.5, global.Slopes[0], 1e-9)
	assert.Equal(t, 60, global.N)
}

func TestRunLogsSummary(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	cfg := uniformConfig()
	cfg.Logger = logger

	d := New(cfg)
	require.NoError(t, d.Initialize(threePoints(t)))
	_, err := d.Run(context.Background(), NewGridTarget(gridOver(t, 0, 0, 1, 1, 0.5)))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Reference points ready."))
	e, ok := logger.FindEntry("Run completed.")
	require.True(t, ok)
	assert.Equal(t, "INFO", e.Level())
	assert.Equal(t, log.OperationEvaluate, e[log.OperationKey])
	assert.Equal(t, 4.0, e[log.LocationsKey])
	assert.Equal(t, 4.0, e[log.ProducedKey])
	assert.Equal(t, 0.0, e[log.NoDataKey])
}
