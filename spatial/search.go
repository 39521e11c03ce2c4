// Package spatial answers nearest-neighbor and radius queries over a fixed
// set of reference points.
//
// An Index is built once and is safe for concurrent Select calls as long as
// nobody mutates the points it was built from.
package spatial

import (
	"math"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Direction selects how candidates are distributed around the query point.
type Direction int

const (
	// All selects the nearest points regardless of direction.
	All Direction = iota
	// Quadrant selects up to MaxCount points from each of the four 90° sectors
	// around the query point. A sector without candidates contributes nothing.
	Quadrant
)

// ParseDirection parses "all" or "quadrant".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "quadrant", "quadrants":
		return Quadrant, nil
	}
	return All, errors.NewValidationError("search.direction", "must be \"all\" or \"quadrant\"", s)
}

func (d Direction) String() string {
	if d == Quadrant {
		return "quadrant"
	}
	return "all"
}

// Query is a neighbor selection policy.
type Query struct {
	// MaxCount limits the number of neighbors, per quadrant in Quadrant mode.
	// Zero means unbounded.
	MaxCount int
	// Radius limits the search distance. Zero means unbounded.
	Radius float64
	// Direction selects all-direction or quadrant search.
	Direction Direction
}

// Global reports whether the query selects every reference point.
func (q Query) Global() bool {
	return q.MaxCount <= 0 && q.Radius <= 0
}

// Neighbor is one selected reference point.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is a kd-tree over reference points.
type Index struct {
	points []orb.Point
	tree   *kdtree.Tree
	bound  orb.Bound
}

// NewIndex builds an index over points. The slice is copied. An empty set or
// a non-finite coordinate is a construction error.
func NewIndex(points []orb.Point) (*Index, error) {
	if len(points) == 0 {
		return nil, errors.NewConstructionError("spatial index", "no reference points")
	}

	s := make(sites, len(points))
	for i, p := range points {
		if !errors.IsFinite(p[0]) || !errors.IsFinite(p[1]) {
			return nil, errors.NewConstructionError("spatial index", "non-finite coordinate")
		}
		s[i] = site{p: p, idx: i}
	}

	return &Index{
		points: slices.Clone(points),
		tree:   kdtree.New(s, false),
		bound:  orb.MultiPoint(points).Bound(),
	}, nil
}

// Len returns the number of indexed points.
func (x *Index) Len() int {
	return len(x.points)
}

// Point returns the i-th reference point.
func (x *Index) Point(i int) orb.Point {
	return x.points[i]
}

// Bounds returns the extent of the reference points.
func (x *Index) Bounds() orb.Bound {
	return x.bound
}

// Select returns the neighbors of p ordered by distance, ties by index.
func (x *Index) Select(p orb.Point, q Query) []Neighbor {
	if x == nil || len(x.points) == 0 {
		return nil
	}

	if q.Global() {
		return x.all(p)
	}

	if q.Direction == Quadrant && q.MaxCount > 0 {
		var result []Neighbor
		for quad := 0; quad < 4; quad++ {
			inQuad := quad
			result = append(result, x.nearest(p, q.MaxCount, q.Radius, func(s site) bool {
				return quadrant(p, s.p) == inQuad
			})...)
		}
		sortNeighbors(result)
		return result
	}

	return x.nearest(p, q.MaxCount, q.Radius, nil)
}

func (x *Index) all(p orb.Point) []Neighbor {
	result := make([]Neighbor, len(x.points))
	for i, rp := range x.points {
		result[i] = Neighbor{Index: i, Distance: planar.Distance(p, rp)}
	}
	sortNeighbors(result)
	return result
}

// nearest returns up to count points within radius that pass accept.
// count <= 0 means unbounded, radius <= 0 means unbounded.
func (x *Index) nearest(p orb.Point, count int, radius float64, accept func(site) bool) []Neighbor {
	query := site{p: p, idx: -1}
	maxDist := math.Inf(1)
	if radius > 0 {
		maxDist = radius * radius
	}
	filter := func(s site) bool {
		if accept != nil && !accept(s) {
			return false
		}
		return radius <= 0 || s.Distance(query) <= maxDist
	}

	if count > 0 {
		keeper := kdtree.NewNKeeper(count)
		x.tree.NearestSet(filterKeeper{Keeper: keeper, accept: filter}, query)

		kept := 0
		kth := 0.0
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			kept++
			kth = math.Max(kth, c.Dist)
		}
		if kept < count {
			return collect(keeper.Heap, 0)
		}
		// collect every point tied with the k-th so index order decides
		maxDist = kth
	}

	keeper := kdtree.NewDistKeeper(maxDist)
	x.tree.NearestSet(filterKeeper{Keeper: keeper, accept: filter}, query)
	return collect(keeper.Heap, count)
}

func collect(heap kdtree.Heap, limit int) []Neighbor {
	result := make([]Neighbor, 0, len(heap))
	for _, c := range heap {
		if c.Comparable == nil {
			continue
		}
		result = append(result, Neighbor{Index: c.Comparable.(site).idx, Distance: math.Sqrt(c.Dist)})
	}
	sortNeighbors(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func sortNeighbors(n []Neighbor) {
	slices.SortFunc(n, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.Index - b.Index
	})
}

// quadrant returns the sector of r around p: 0 north-east, 1 north-west,
// 2 south-west, 3 south-east. Points on an axis belong to the sector on
// its non-negative side.
func quadrant(p, r orb.Point) int {
	dx, dy := r[0]-p[0], r[1]-p[1]
	switch {
	case dx >= 0 && dy >= 0:
		return 0
	case dx < 0 && dy >= 0:
		return 1
	case dx < 0:
		return 2
	default:
		return 3
	}
}
