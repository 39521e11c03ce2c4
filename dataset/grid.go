package dataset

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// GridSystem describes a regular raster. Origin is the center of cell
// (0, 0), the south-west corner cell; rows grow northwards.
type GridSystem struct {
	Cols, Rows int
	CellSize   float64
	Origin     orb.Point
}

// NewGridSystem covers extent with square cells of the given size. The
// column and row counts are rounded up so the grid contains the extent.
func NewGridSystem(extent orb.Bound, cellSize float64) (GridSystem, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return GridSystem{}, errors.NewValidationError("cell_size", "must be positive and finite", cellSize)
	}
	w, h := extent.Max[0]-extent.Min[0], extent.Max[1]-extent.Min[1]
	if w < 0 || h < 0 || !errors.IsFinite(w) || !errors.IsFinite(h) {
		return GridSystem{}, errors.NewValidationError("extent", "min must not exceed max", extent)
	}

	cols := max(1, int(math.Ceil(w/cellSize-1e-9)))
	rows := max(1, int(math.Ceil(h/cellSize-1e-9)))
	return GridSystem{
		Cols:     cols,
		Rows:     rows,
		CellSize: cellSize,
		Origin:   orb.Point{extent.Min[0] + cellSize/2, extent.Min[1] + cellSize/2},
	}, nil
}

// Valid reports whether the system has cells and a usable cell size.
func (s GridSystem) Valid() bool {
	return s.Cols > 0 && s.Rows > 0 && s.CellSize > 0
}

// Len returns the number of cells.
func (s GridSystem) Len() int {
	return s.Cols * s.Rows
}

// CellCenter returns the world coordinate of the center of (col, row).
func (s GridSystem) CellCenter(col, row int) orb.Point {
	return orb.Point{
		s.Origin[0] + float64(col)*s.CellSize,
		s.Origin[1] + float64(row)*s.CellSize,
	}
}

// Bounds returns the outer edges of the grid.
func (s GridSystem) Bounds() orb.Bound {
	half := s.CellSize / 2
	return orb.Bound{
		Min: orb.Point{s.Origin[0] - half, s.Origin[1] - half},
		Max: orb.Point{
			s.Origin[0] + float64(s.Cols-1)*s.CellSize + half,
			s.Origin[1] + float64(s.Rows-1)*s.CellSize + half,
		},
	}
}

// CenterBounds returns the extent of the cell centers.
func (s GridSystem) CenterBounds() orb.Bound {
	return orb.Bound{Min: s.Origin, Max: s.CellCenter(s.Cols-1, s.Rows-1)}
}

// Cell returns the cell containing p.
func (s GridSystem) Cell(p orb.Point) (col, row int, ok bool) {
	col = int(math.Floor((p[0]-s.Origin[0])/s.CellSize + 0.5))
	row = int(math.Floor((p[1]-s.Origin[1])/s.CellSize + 0.5))
	return col, row, s.Contains(col, row)
}

// Contains reports whether (col, row) is inside the grid.
func (s GridSystem) Contains(col, row int) bool {
	return col >= 0 && col < s.Cols && row >= 0 && row < s.Rows
}

// Grid is read access to a raster.
type Grid interface {
	System() GridSystem
	Dims() (cols, rows int)
	CellSize() float64
	// Origin is the center of cell (0, 0).
	Origin() orb.Point
	Bounds() orb.Bound
	// Value returns false for no-data and for cells outside the grid.
	Value(col, row int) (float64, bool)
	// Sample interpolates the grid at a world coordinate.
	Sample(p orb.Point, mode Interpolation) (float64, bool)
}

// OutputGrid receives per-cell results. Calls for distinct cells may run
// concurrently.
type OutputGrid interface {
	SetValue(col, row int, v float64)
	SetNoData(col, row int)
}

// MemoryGrid is a float64 raster held in memory.
type MemoryGrid struct {
	Name string

	sys  GridSystem
	data []float64
}

var (
	_ Grid       = (*MemoryGrid)(nil)
	_ OutputGrid = (*MemoryGrid)(nil)
)

// NewMemoryGrid returns a grid with every cell set to no-data.
func NewMemoryGrid(sys GridSystem) *MemoryGrid {
	data := make([]float64, sys.Len())
	for i := range data {
		data[i] = math.NaN()
	}
	return &MemoryGrid{sys: sys, data: data}
}

// NewMemoryGridFrom wraps values laid out row by row from row 0. NaN marks
// no-data. The slice is used directly.
func NewMemoryGridFrom(sys GridSystem, values []float64) (*MemoryGrid, error) {
	if len(values) != sys.Len() {
		return nil, errors.NewDimensionError("NewMemoryGridFrom", sys.Len(), len(values), 0)
	}
	return &MemoryGrid{sys: sys, data: values}, nil
}

func (g *MemoryGrid) System() GridSystem     { return g.sys }
func (g *MemoryGrid) Dims() (int, int)       { return g.sys.Cols, g.sys.Rows }
func (g *MemoryGrid) CellSize() float64      { return g.sys.CellSize }
func (g *MemoryGrid) Origin() orb.Point      { return g.sys.Origin }
func (g *MemoryGrid) Bounds() orb.Bound      { return g.sys.Bounds() }
func (g *MemoryGrid) SetNoData(col, row int) { g.data[row*g.sys.Cols+col] = math.NaN() }

func (g *MemoryGrid) SetValue(col, row int, v float64) {
	g.data[row*g.sys.Cols+col] = v
}

func (g *MemoryGrid) Value(col, row int) (float64, bool) {
	if !g.sys.Contains(col, row) {
		return math.NaN(), false
	}
	v := g.data[row*g.sys.Cols+col]
	return v, !math.IsNaN(v)
}

// At returns the raw cell value, NaN for no-data.
func (g *MemoryGrid) At(col, row int) float64 {
	return g.data[row*g.sys.Cols+col]
}

// Data returns the backing slice.
func (g *MemoryGrid) Data() []float64 {
	return g.data
}

// NoDataCount returns the number of no-data cells.
func (g *MemoryGrid) NoDataCount() int {
	n := 0
	for _, v := range g.data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Range returns the minimum and maximum of the valid cells. ok is false when
// every cell is no-data.
func (g *MemoryGrid) Range() (lo, hi float64, ok bool) {
	valid := make([]float64, 0, len(g.data))
	for _, v := range g.data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN(), math.NaN(), false
	}
	return floats.Min(valid), floats.Max(valid), true
}

func (g *MemoryGrid) Sample(p orb.Point, mode Interpolation) (float64, bool) {
	return sample(g, p, mode)
}
