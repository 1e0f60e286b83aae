// Package spatial provides a 2-D k-d tree for nearest-neighbour lookups.
//
// Distances are planar on raw latitude/longitude degrees. That is only
// adequate when all points lie inside one metropolitan area.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/school-tracker/internal/model"
)

// ErrEmptyIndex is returned when querying a tree built from no points.
var ErrEmptyIndex = eris.New("spatial: nearest-neighbour query on empty index")

type node[T model.Locatable] struct {
	item  T
	pos   model.Coord
	axis  int // 0: lat, 1: lng
	left  *node[T]
	right *node[T]
}

// Tree is an immutable k-d tree over points of type T.
type Tree[T model.Locatable] struct {
	root *node[T]
	size int
}

// Build constructs a balanced tree. The input slice is not modified.
func Build[T model.Locatable](items []T) *Tree[T] {
	nodes := make([]*node[T], len(items))
	for i, it := range items {
		nodes[i] = &node[T]{item: it, pos: it.Position()}
	}
	return &Tree[T]{root: build(nodes, 0), size: len(items)}
}

// Len returns the number of points in the tree.
func (t *Tree[T]) Len() int { return t.size }

func build[T model.Locatable](nodes []*node[T], depth int) *node[T] {
	if len(nodes) == 0 {
		return nil
	}
	axis := depth % 2
	mid := len(nodes) / 2
	selectNth(nodes, mid, axis)

	n := nodes[mid]
	n.axis = axis
	n.left = build(nodes[:mid], depth+1)
	n.right = build(nodes[mid+1:], depth+1)
	return n
}

// selectNth partially orders a so that a[k] holds the k-th smallest value on axis.
func selectNth[T model.Locatable](a []*node[T], k, axis int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, axis)
		switch {
		case p == k:
			return
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func partition[T model.Locatable](a []*node[T], lo, hi, pivot, axis int) int {
	pv := component(a[pivot].pos, axis)
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if component(a[j].pos, axis) < pv {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func component(c model.Coord, axis int) float64 {
	if axis == 0 {
		return c.Lat
	}
	return c.Lng
}

// Nearest returns the point closest to q and its planar distance in degrees.
func (t *Tree[T]) Nearest(q model.Coord) (T, float64, error) {
	var best T
	if t.root == nil {
		return best, 0, ErrEmptyIndex
	}

	bestD := math.Inf(1)
	var visit func(n *node[T])
	visit = func(n *node[T]) {
		if n == nil {
			return
		}
		if d := planar(q, n.pos); d < bestD {
			bestD = d
			best = n.item
		}

		key, split := component(q, n.axis), component(n.pos, n.axis)
		near, far := n.left, n.right
		if key >= split {
			near, far = n.right, n.left
		}
		visit(near)
		// The far side can only hold a closer point if the splitting plane is
		// nearer than the best match so far.
		if math.Abs(key-split) < bestD {
			visit(far)
		}
	}
	visit(t.root)

	return best, bestD, nil
}

func planar(a, b model.Coord) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}
