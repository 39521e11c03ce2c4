package dataset

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

func TestMemoryTable(t *testing.T) {
	tbl := NewMemoryTable("z", "a")
	require.NoError(t, tbl.Append(orb.Point{0, 0}, 1, 2))
	require.NoError(t, tbl.Append(orb.Point{3, -1}, math.NaN(), 4))

	err := tbl.Append(orb.Point{1, 1}, 1)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2, tbl.FieldCount())
	assert.Equal(t, "a", tbl.FieldName(1))
	assert.Equal(t, 1, tbl.FieldIndex("a"))
	assert.Equal(t, -1, tbl.FieldIndex("missing"))

	v, ok := tbl.Value(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = tbl.Value(1, 0)
	assert.False(t, ok)

	assert.Equal(t, orb.Bound{Min: orb.Point{0, -1}, Max: orb.Point{3, 0}}, tbl.Bounds())
	assert.Equal(t, tbl.Bounds(), TableBounds(tbl))
}

func TestMemoryTableOutput(t *testing.T) {
	tbl := NewMemoryTable("z")
	require.NoError(t, tbl.Append(orb.Point{0, 0}, 1))
	require.NoError(t, tbl.Append(orb.Point{1, 0}, 2))

	j := tbl.AddField("intercept")
	assert.Equal(t, 1, j)
	assert.Equal(t, j, tbl.AddField("intercept"))

	_, ok := tbl.Value(0, j)
	assert.False(t, ok, "new fields start as no-data")

	tbl.SetValue(1, j, 7.5)
	v, ok := tbl.Value(1, j)
	assert.True(t, ok)
	assert.Equal(t, 7.5, v)

	tbl.SetNoData(1, j)
	_, ok = tbl.Value(1, j)
	assert.False(t, ok)

	assert.Len(t, tbl.Column("z"), 2)
	assert.Nil(t, tbl.Column("nope"))
}
