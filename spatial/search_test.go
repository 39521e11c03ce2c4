package spatial

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

func randomPoints(n int, seed uint64) []orb.Point {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	points := make([]orb.Point, n)
	for i := range points {
		points[i] = orb.Point{rng.Float64() * 100, rng.Float64() * 100}
	}
	return points
}

// bruteForce selects with a linear scan.
func bruteForce(points []orb.Point, p orb.Point, q Query) []Neighbor {
	var all []Neighbor
	for i, rp := range points {
		d := planar.Distance(p, rp)
		if q.Radius > 0 && d > q.Radius {
			continue
		}
		all = append(all, Neighbor{Index: i, Distance: d})
	}
	sortNeighbors(all)
	if q.MaxCount <= 0 {
		return all
	}
	if q.Direction == Quadrant {
		var result []Neighbor
		counts := [4]int{}
		for _, n := range all {
			quad := quadrant(p, points[n.Index])
			if counts[quad] < q.MaxCount {
				counts[quad]++
				result = append(result, n)
			}
		}
		return result
	}
	if len(all) > q.MaxCount {
		all = all[:q.MaxCount]
	}
	return all
}

func indices(n []Neighbor) []int {
	out := make([]int, len(n))
	for i := range n {
		out[i] = n[i].Index
	}
	return out
}

func TestNewIndexErrors(t *testing.T) {
	_, err := NewIndex(nil)
	require.Error(t, err)
	var ce *errors.ConstructionError
	assert.True(t, errors.As(err, &ce))

	_, err = NewIndex([]orb.Point{{0, 0}, {math.NaN(), 1}})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ce))
}

func TestSelectEmptyIndex(t *testing.T) {
	var x *Index
	assert.Empty(t, x.Select(orb.Point{0, 0}, Query{MaxCount: 3}))
}

func TestSelectGlobalReturnsEverything(t *testing.T) {
	points := randomPoints(200, 1)
	x, err := NewIndex(points)
	require.NoError(t, err)

	for _, q := range []orb.Point{{0, 0}, {50, 50}, {-30, 220}} {
		got := x.Select(q, Query{})
		require.Len(t, got, len(points))

		idx := indices(got)
		slices.Sort(idx)
		for i := range idx {
			assert.Equal(t, i, idx[i])
		}
	}

	// quadrant mode without a count limit is still global
	assert.Len(t, x.Select(orb.Point{10, 10}, Query{Direction: Quadrant}), len(points))
}

func TestSelectMatchesBruteForce(t *testing.T) {
	points := randomPoints(500, 7)
	x, err := NewIndex(points)
	require.NoError(t, err)

	queries := []Query{
		{MaxCount: 1},
		{MaxCount: 8},
		{MaxCount: 50},
		{Radius: 5},
		{Radius: 20},
		{MaxCount: 10, Radius: 6},
		{MaxCount: 3, Direction: Quadrant},
		{MaxCount: 5, Radius: 15, Direction: Quadrant},
	}
	targets := randomPoints(25, 99)
	targets = append(targets, orb.Point{-50, -50}, orb.Point{150, 40})

	for _, q := range queries {
		for _, p := range targets {
			want := bruteForce(points, p, q)
			got := x.Select(p, q)
			require.Equal(t, indices(want), indices(got), "query %+v at %v", q, p)
			for i := range got {
				assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-9)
			}
		}
	}
}

func TestSelectOrderingAndTies(t *testing.T) {
	// four points at distance 1 and one at the query location
	points := []orb.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {0, 0}, {3, 3}}
	x, err := NewIndex(points)
	require.NoError(t, err)

	got := x.Select(orb.Point{0, 0}, Query{MaxCount: 3})
	assert.Equal(t, []int{4, 0, 1}, indices(got))
	assert.Equal(t, 0.0, got[0].Distance)

	got = x.Select(orb.Point{0, 0}, Query{})
	assert.Equal(t, []int{4, 0, 1, 2, 3, 5}, indices(got))
}

func TestSelectRadiusShortfall(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 0}, {10, 0}}
	x, err := NewIndex(points)
	require.NoError(t, err)

	got := x.Select(orb.Point{0, 0}, Query{MaxCount: 5, Radius: 2})
	assert.Equal(t, []int{0, 1}, indices(got))

	got = x.Select(orb.Point{100, 100}, Query{Radius: 1})
	assert.Empty(t, got)
}

func TestSelectQuadrant(t *testing.T) {
	// clustered in the north-east, one point in each other sector
	points := []orb.Point{
		{1, 1}, {1.2, 1}, {1, 1.3}, {0.5, 0.5},
		{-4, 3},
		{-5, -5},
		{6, -1},
	}
	x, err := NewIndex(points)
	require.NoError(t, err)

	all := x.Select(orb.Point{0, 0}, Query{MaxCount: 4})
	assert.Equal(t, []int{3, 0, 1, 2}, indices(all))

	quad := x.Select(orb.Point{0, 0}, Query{MaxCount: 1, Direction: Quadrant})
	assert.Equal(t, []int{3, 4, 6, 5}, indices(quad))

	// empty sectors contribute nothing
	quad = x.Select(orb.Point{-10, -10}, Query{MaxCount: 2, Direction: Quadrant})
	assert.Equal(t, []int{5, 4}, indices(quad))
}

func TestQuadrantAxes(t *testing.T) {
	p := orb.Point{0, 0}
	// a point on an axis falls on its non-negative side
	assert.Equal(t, 0, quadrant(p, orb.Point{0, 0}))
	assert.Equal(t, 0, quadrant(p, orb.Point{1, 0}))
	assert.Equal(t, 1, quadrant(p, orb.Point{-1, 0}))
	assert.Equal(t, 0, quadrant(p, orb.Point{0, 1}))
	assert.Equal(t, 3, quadrant(p, orb.Point{0, -1}))
	assert.Equal(t, 2, quadrant(p, orb.Point{-1, -1}))
}

func TestIndexAccessors(t *testing.T) {
	points := []orb.Point{{2, 3}, {-1, 5}, {4, -2}}
	x, err := NewIndex(points)
	require.NoError(t, err)

	assert.Equal(t, 3, x.Len())
	assert.Equal(t, orb.Point{-1, 5}, x.Point(1))
	assert.Equal(t, orb.Bound{Min: orb.Point{-1, -2}, Max: orb.Point{4, 5}}, x.Bounds())

	// the index does not alias the caller's slice
	points[0] = orb.Point{100, 100}
	assert.Equal(t, orb.Point{2, 3}, x.Point(0))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("Quadrant")
	require.NoError(t, err)
	assert.Equal(t, Quadrant, d)

	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, All, d)

	_, err = ParseDirection("octant")
	assert.Error(t, err)
}

func TestSelectConcurrent(t *testing.T) {
	points := randomPoints(300, 3)
	x, err := NewIndex(points)
	require.NoError(t, err)

	targets := randomPoints(64, 11)
	q := Query{MaxCount: 6, Radius: 30, Direction: Quadrant}
	want := make([][]int, len(targets))
	for i, p := range targets {
		want[i] = indices(x.Select(p, q))
	}

	var wg sync.WaitGroup
	got := make([][]int, len(targets))
	for i, p := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = indices(x.Select(p, q))
		}()
	}
	wg.Wait()
	assert.Equal(t, want, got)
}

func BenchmarkSelect(b *testing.B) {
	points := randomPoints(10000, 5)
	x, err := NewIndex(points)
	if err != nil {
		b.Fatal(err)
	}
	q := Query{MaxCount: 16}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.Select(orb.Point{50, 50}, q)
	}
}
