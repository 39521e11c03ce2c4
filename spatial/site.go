package spatial

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// site is a reference point stored in the kd-tree together with its
// position in the original point set.
type site struct {
	p   orb.Point
	idx int
}

// Compare implements kdtree.Comparable.
func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	return s.p[d] - q.p[d]
}

// Dims implements kdtree.Comparable.
func (s site) Dims() int { return 2 }

// Distance returns the squared planar distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx := s.p[0] - q.p[0]
	dy := s.p[1] - q.p[1]
	return dx*dx + dy*dy
}

// sites satisfies kdtree.Interface.
type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                               { return len(s) }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

// Pivot implements kdtree.Interface.
func (s sites) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{sites: s, Dim: d}, kdtree.MedianOfRandoms(plane{sites: s, Dim: d}, 100))
}

// plane sorts sites along one dimension.
type plane struct {
	sites
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.sites[i].p[p.Dim] < p.sites[j].p[p.Dim]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{sites: p.sites[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.sites[i], p.sites[j] = p.sites[j], p.sites[i]
}

// filterKeeper keeps only candidates accepted by accept. Pruning still
// uses the wrapped keeper's Max, which is conservative.
type filterKeeper struct {
	kdtree.Keeper
	accept func(site) bool
}

func (k filterKeeper) Keep(c kdtree.ComparableDist) {
	if k.accept(c.Comparable.(site)) {
		k.Keeper.Keep(c)
	}
}
