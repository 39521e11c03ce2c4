// Package dataset defines the containers the regression driver reads from
// and writes to: point tables and regular grids. No-data is represented as
// NaN in the in-memory implementations.
package dataset

import (
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// PointTable is read access to a set of located records with numeric fields.
type PointTable interface {
	Len() int
	Location(i int) orb.Point
	FieldCount() int
	FieldName(j int) string
	// FieldIndex returns -1 when no field has the given name.
	FieldIndex(name string) int
	// Value returns false when the field is no-data for record i.
	Value(i, j int) (float64, bool)
}

// OutputTable receives per-record results. SetValue and SetNoData on
// distinct (record, field) pairs may be called concurrently; AddField may not.
type OutputTable interface {
	// Len is the number of records that can receive values.
	Len() int
	// AddField returns the index of the named field, creating it filled with
	// no-data if it does not exist yet.
	AddField(name string) int
	SetValue(i, j int, v float64)
	SetNoData(i, j int)
}

// MemoryTable is an in-memory PointTable and OutputTable.
type MemoryTable struct {
	points []orb.Point
	names  []string
	rows   [][]float64
}

var (
	_ PointTable  = (*MemoryTable)(nil)
	_ OutputTable = (*MemoryTable)(nil)
)

// NewMemoryTable creates an empty table with the given fields.
func NewMemoryTable(fields ...string) *MemoryTable {
	return &MemoryTable{names: slices.Clone(fields)}
}

// Append adds a record. A NaN value marks no-data.
func (t *MemoryTable) Append(p orb.Point, values ...float64) error {
	if len(values) != len(t.names) {
		return errors.NewDimensionError("MemoryTable.Append", len(t.names), len(values), 1)
	}
	t.points = append(t.points, p)
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

func (t *MemoryTable) Len() int                 { return len(t.points) }
func (t *MemoryTable) Location(i int) orb.Point { return t.points[i] }
func (t *MemoryTable) FieldCount() int          { return len(t.names) }
func (t *MemoryTable) FieldName(j int) string   { return t.names[j] }

func (t *MemoryTable) FieldIndex(name string) int {
	return slices.Index(t.names, name)
}

func (t *MemoryTable) Value(i, j int) (float64, bool) {
	v := t.rows[i][j]
	return v, !math.IsNaN(v)
}

func (t *MemoryTable) AddField(name string) int {
	if j := t.FieldIndex(name); j >= 0 {
		return j
	}
	t.names = append(t.names, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], math.NaN())
	}
	return len(t.names) - 1
}

func (t *MemoryTable) SetValue(i, j int, v float64) { t.rows[i][j] = v }
func (t *MemoryTable) SetNoData(i, j int)           { t.rows[i][j] = math.NaN() }

// Bounds returns the extent of all record locations.
func (t *MemoryTable) Bounds() orb.Bound {
	if len(t.points) == 0 {
		return orb.Bound{}
	}
	return orb.MultiPoint(t.points).Bound()
}

// Column returns a copy of the named field, NaN for no-data. It returns nil
// when the field does not exist.
func (t *MemoryTable) Column(name string) []float64 {
	j := t.FieldIndex(name)
	if j < 0 {
		return nil
	}
	col := make([]float64, len(t.rows))
	for i := range t.rows {
		col[i] = t.rows[i][j]
	}
	return col
}

// TableBounds returns the extent of any PointTable.
func TableBounds(t PointTable) orb.Bound {
	if t.Len() == 0 {
		return orb.Bound{}
	}
	b := t.Location(0).Bound()
	for i := 1; i < t.Len(); i++ {
		b = b.Extend(t.Location(i))
	}
	return b
}
