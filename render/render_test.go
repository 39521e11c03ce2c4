package render

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

func testGrid(t *testing.T, values []float64) *dataset.MemoryGrid {
	t.Helper()
	sys := dataset.GridSystem{Cols: 3, Rows: 2, CellSize: 10, Origin: orb.Point{5, 5}}
	g, err := dataset.NewMemoryGridFrom(sys, values)
	require.NoError(t, err)
	return g
}

func TestGridXYZ(t *testing.T) {
	g := testGrid(t, []float64{1, 2, 3, math.NaN(), 5, 6})
	xyz := gridXYZ{g: g}

	c, r := xyz.Dims()
	assert.Equal(t, 3, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 25.0, xyz.X(2))
	assert.Equal(t, 15.0, xyz.Y(1))
	assert.Equal(t, 2.0, xyz.Z(1, 0))
	assert.True(t, math.IsNaN(xyz.Z(0, 1)))

	lo, hi, ok := zRange(g)
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 6.0, hi)
}

func TestHeatMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intercept.png")
	g := testGrid(t, []float64{1, 2, 3, math.NaN(), 5, 6})

	require.NoError(t, HeatMap(g, "intercept", path, 3*vg.Inch, 3*vg.Inch))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHeatMapConstantGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.png")
	g := testGrid(t, []float64{4, 4, 4, 4, 4, 4})
	assert.NoError(t, HeatMap(g, "flat", path, 2*vg.Inch, 2*vg.Inch))
}

func TestHeatMapEmptyGrid(t *testing.T) {
	nan := math.NaN()
	g := testGrid(t, []float64{nan, nan, nan, nan, nan, nan})
	err := HeatMap(g, "empty", filepath.Join(t.TempDir(), "empty.png"), vg.Inch, vg.Inch)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	assert.Error(t, HeatMap(nil, "nil", "unused.png", vg.Inch, vg.Inch))
}

func TestScatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "residuals.png")
	observed := []float64{1, 2, 3, 4}
	fitted := []float64{1.1, 1.9, math.NaN(), 4.2}

	require.NoError(t, Scatter(observed, fitted, "residuals", path, 3*vg.Inch, 3*vg.Inch))
	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Error(t, Scatter([]float64{1}, []float64{1, 2}, "bad", path, vg.Inch, vg.Inch))
	err = Scatter([]float64{math.NaN()}, []float64{1}, "none", path, vg.Inch, vg.Inch)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
