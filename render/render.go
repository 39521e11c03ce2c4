// Package render draws output grids and residual diagnostics with gonum/plot.
package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// DefaultSize is the width and height used by the gwr command.
const DefaultSize = 6 * vg.Inch

// gridXYZ adapts a dataset.Grid to plotter.GridXYZ. No-data cells are NaN.
type gridXYZ struct {
	g dataset.Grid
}

func (x gridXYZ) Dims() (c, r int) { return x.g.Dims() }

func (x gridXYZ) Z(c, r int) float64 {
	v, ok := x.g.Value(c, r)
	if !ok {
		return math.NaN()
	}
	return v
}

func (x gridXYZ) X(c int) float64 { return x.g.Origin()[0] + float64(c)*x.g.CellSize() }
func (x gridXYZ) Y(r int) float64 { return x.g.Origin()[1] + float64(r)*x.g.CellSize() }

// zRange returns the finite value range of g.
func zRange(g dataset.Grid) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	cols, rows := g.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v, valid := g.Value(c, r)
			if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	return lo, hi, lo <= hi
}

// HeatMap renders g to path. The image format follows the file extension.
// No-data cells are transparent. A grid without any value is an error.
func HeatMap(g dataset.Grid, title, path string, w, h vg.Length) error {
	if g == nil {
		return errors.NewValueError("render.HeatMap", "nil grid")
	}
	lo, hi, ok := zRange(g)
	if !ok {
		return errors.NewModelError("render.HeatMap", "grid has no data", errors.ErrEmptyData)
	}
	if hi == lo {
		hi = lo + 1
	}

	hm := plotter.NewHeatMap(gridXYZ{g: g}, palette.Heat(64, 1))
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(hm)

	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "failed to save heat map %s", path)
	}
	return nil
}

// Scatter renders observed against fitted values with the identity line.
func Scatter(observed, fitted []float64, title, path string, w, h vg.Length) error {
	if len(observed) != len(fitted) {
		return errors.NewDimensionError("render.Scatter", len(observed), len(fitted), 0)
	}
	pts := make(plotter.XYs, 0, len(observed))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range observed {
		if math.IsNaN(observed[i]) || math.IsNaN(fitted[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: observed[i], Y: fitted[i]})
		lo = math.Min(lo, math.Min(observed[i], fitted[i]))
		hi = math.Max(hi, math.Max(observed[i], fitted[i]))
	}
	if len(pts) == 0 {
		return errors.NewModelError("render.Scatter", "no fitted values", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "observed"
	p.Y.Label.Text = "fitted"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to create scatter")
	}
	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "failed to create identity line")
	}
	identity.Color = color.Gray{Y: 128}
	p.Add(s, identity)

	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "failed to save scatter plot %s", path)
	}
	return nil
}
