package gwr

import (
	"github.com/paulmach/orb"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Output names shared by grid and point targets.
const (
	FieldIntercept  = "intercept"
	FieldR2         = "r2"
	FieldPrediction = "prediction"
	slopePrefix     = "slope_"
)

// SlopeField returns the output name of a predictor's slope.
func SlopeField(predictor string) string {
	return slopePrefix + predictor
}

// Target is a domain of locations the driver evaluates and writes to.
// Implementations are GridTarget and PointTarget.
type Target interface {
	// layout returns the row-major shape of the domain. Rows are the unit of
	// cancellation.
	layout() (rows, cols int)
	// location returns false for padding cells that are not part of the domain.
	location(row, col int) (orb.Point, bool)
	bounds() orb.Bound
	// begin prepares the outputs before any location is evaluated.
	begin(d *Driver) error
	write(row, col int, m *model.LocalModel)
	noData(row, col int)
}

// GridTarget evaluates every cell center of a raster. Output grids left nil
// are created as dataset.MemoryGrid by Run.
type GridTarget struct {
	System dataset.GridSystem

	Intercept dataset.OutputGrid
	Slopes    []dataset.OutputGrid
	R2        dataset.OutputGrid
	// Prediction is intercept + Σ slope·predictor, filled only when every
	// predictor is supplied as a grid.
	Prediction dataset.OutputGrid

	names      []string
	predictors []dataset.Grid
	interp     dataset.Interpolation
}

// NewGridTarget creates a target over sys.
func NewGridTarget(sys dataset.GridSystem) *GridTarget {
	return &GridTarget{System: sys}
}

func (t *GridTarget) layout() (int, int) {
	return t.System.Rows, t.System.Cols
}

func (t *GridTarget) location(row, col int) (orb.Point, bool) {
	return t.System.CellCenter(col, row), true
}

func (t *GridTarget) bounds() orb.Bound {
	return t.System.Bounds()
}

func (t *GridTarget) begin(d *Driver) error {
	if !t.System.Valid() {
		return errors.NewValidationError("target", "grid system has no cells", t.System)
	}

	predictors := d.cfg.Predictors
	t.names = predictors

	create := func(g dataset.OutputGrid, name string) dataset.OutputGrid {
		if g != nil {
			return g
		}
		m := dataset.NewMemoryGrid(t.System)
		m.Name = name
		return m
	}

	t.Intercept = create(t.Intercept, FieldIntercept)
	t.R2 = create(t.R2, FieldR2)
	if t.Slopes == nil {
		t.Slopes = make([]dataset.OutputGrid, len(predictors))
	}
	if len(t.Slopes) != len(predictors) {
		return errors.NewDimensionError("GridTarget.Slopes", len(predictors), len(t.Slopes), 1)
	}
	for j, name := range predictors {
		t.Slopes[j] = create(t.Slopes[j], SlopeField(name))
	}

	t.predictors = nil
	if grids := d.predictorGrids(); grids != nil {
		t.predictors = grids
		t.interp = d.cfg.Interpolation
		t.Prediction = create(t.Prediction, FieldPrediction)
	}
	return nil
}

func (t *GridTarget) write(row, col int, m *model.LocalModel) {
	t.Intercept.SetValue(col, row, m.Intercept)
	for j, s := range m.Slopes {
		t.Slopes[j].SetValue(col, row, s)
	}
	t.R2.SetValue(col, row, m.R2)

	if t.predictors == nil || t.Prediction == nil {
		return
	}
	p := t.System.CellCenter(col, row)
	x := make([]float64, len(t.predictors))
	for j, g := range t.predictors {
		v, ok := g.Sample(p, t.interp)
		if !ok {
			t.Prediction.SetNoData(col, row)
			return
		}
		x[j] = v
	}
	t.Prediction.SetValue(col, row, m.Predict(x))
}

func (t *GridTarget) noData(row, col int) {
	t.Intercept.SetNoData(col, row)
	for _, s := range t.Slopes {
		s.SetNoData(col, row)
	}
	t.R2.SetNoData(col, row)
	if t.Prediction != nil {
		t.Prediction.SetNoData(col, row)
	}
}

// MemoryGrids returns the outputs that are dataset.MemoryGrid values, in the
// order intercept, slopes, r2, prediction.
func (t *GridTarget) MemoryGrids() []*dataset.MemoryGrid {
	var grids []*dataset.MemoryGrid
	add := func(g dataset.OutputGrid) {
		if m, ok := g.(*dataset.MemoryGrid); ok {
			grids = append(grids, m)
		}
	}
	add(t.Intercept)
	for _, s := range t.Slopes {
		add(s)
	}
	add(t.R2)
	add(t.Prediction)
	return grids
}

// pointsPerRow groups point targets into rows for cancellation checks.
const pointsPerRow = 64

// PointTarget evaluates every record location of Points and writes the
// fields intercept, slope_<predictor> and r2 to Output.
type PointTarget struct {
	Points dataset.PointTable
	Output dataset.OutputTable

	intercept, r2 int
	slopes        []int
}

// NewPointTarget reads locations from t and writes results back into it.
func NewPointTarget(t *dataset.MemoryTable) *PointTarget {
	return &PointTarget{Points: t, Output: t}
}

func (t *PointTarget) layout() (int, int) {
	n := t.Points.Len()
	return (n + pointsPerRow - 1) / pointsPerRow, min(n, pointsPerRow)
}

func (t *PointTarget) location(row, col int) (orb.Point, bool) {
	i := row*pointsPerRow + col
	if i >= t.Points.Len() {
		return orb.Point{}, false
	}
	return t.Points.Location(i), true
}

func (t *PointTarget) bounds() orb.Bound {
	return dataset.TableBounds(t.Points)
}

func (t *PointTarget) begin(d *Driver) error {
	if t.Points == nil || t.Output == nil {
		return errors.NewValidationError("target", "point target needs a point table and an output table", nil)
	}
	if t.Points.Len() == 0 {
		return errors.NewValidationError("target", "point target has no records", 0)
	}
	if t.Output.Len() < t.Points.Len() {
		return errors.NewValidationError("target", "output table has fewer records than the point table", t.Output.Len())
	}
	t.intercept = t.Output.AddField(FieldIntercept)
	t.slopes = make([]int, len(d.cfg.Predictors))
	for j, name := range d.cfg.Predictors {
		t.slopes[j] = t.Output.AddField(SlopeField(name))
	}
	t.r2 = t.Output.AddField(FieldR2)
	return nil
}

func (t *PointTarget) write(row, col int, m *model.LocalModel) {
	i := row*pointsPerRow + col
	t.Output.SetValue(i, t.intercept, m.Intercept)
	for j, s := range m.Slopes {
		t.Output.SetValue(i, t.slopes[j], s)
	}
	t.Output.SetValue(i, t.r2, m.R2)
}

func (t *PointTarget) noData(row, col int) {
	i := row*pointsPerRow + col
	t.Output.SetNoData(i, t.intercept)
	for _, j := range t.slopes {
		t.Output.SetNoData(i, j)
	}
	t.Output.SetNoData(i, t.r2)
}
