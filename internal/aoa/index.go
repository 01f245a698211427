package aoa

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexKind selects the nearest neighbour search strategy.
type IndexKind string

const (
	IndexKDTree IndexKind = "kdtree"
	IndexBrute  IndexKind = "brute"
)

// Index finds the nearest projected training vector to a query. Searches
// must be safe for concurrent use.
type Index interface {
	// Nearest returns the training row index and Euclidean distance of the
	// closest training vector.
	Nearest(q []float64) (int, float64)
}

// NewIndex builds an index of the given kind over projected training vectors.
func NewIndex(kind IndexKind, points [][]float64) (Index, error) {
	if len(points) == 0 {
		return nil, eris.New("aoa: cannot index an empty training set")
	}
	switch kind {
	case IndexBrute:
		return bruteIndex(points), nil
	case IndexKDTree, "":
		pts := make(trainPoints, len(points))
		for i, p := range points {
			pts[i] = trainPoint{coords: p, row: i}
		}
		return &kdIndex{tree: kdtree.New(pts, false)}, nil
	default:
		return nil, eris.Errorf("aoa: unknown index kind %q", kind)
	}
}

type bruteIndex [][]float64

func (b bruteIndex) Nearest(q []float64) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i, p := range b {
		if d := sqDist(q, p); d < bestD {
			best, bestD = i, d
		}
	}
	return best, math.Sqrt(bestD)
}

type kdIndex struct {
	tree *kdtree.Tree
}

func (k *kdIndex) Nearest(q []float64) (int, float64) {
	c, d := k.tree.Nearest(trainPoint{coords: q, row: -1})
	if c == nil {
		return -1, math.Inf(1)
	}
	return c.(trainPoint).row, math.Sqrt(d)
}

// trainPoint is a kd-tree point that remembers its training row, since the
// tree reorders its input while building.
type trainPoint struct {
	coords []float64
	row    int
}

func (p trainPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coords[d] - c.(trainPoint).coords[d]
}

func (p trainPoint) Dims() int { return len(p.coords) }

func (p trainPoint) Distance(c kdtree.Comparable) float64 {
	return sqDist(p.coords, c.(trainPoint).coords)
}

type trainPoints []trainPoint

func (p trainPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p trainPoints) Len() int                              { return len(p) }
func (p trainPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p trainPoints) Pivot(d kdtree.Dim) int {
	return trainPlane{Dim: d, trainPoints: p}.Pivot()
}

// trainPlane pivots trainPoints on one dimension.
type trainPlane struct {
	kdtree.Dim
	trainPoints
}

func (p trainPlane) Less(i, j int) bool {
	return p.trainPoints[i].coords[p.Dim] < p.trainPoints[j].coords[p.Dim]
}
func (p trainPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfRandoms(p, 100)) }
func (p trainPlane) Slice(start, end int) kdtree.SortSlicer {
	p.trainPoints = p.trainPoints[start:end]
	return p
}
func (p trainPlane) Swap(i, j int) {
	p.trainPoints[i], p.trainPoints[j] = p.trainPoints[j], p.trainPoints[i]
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
