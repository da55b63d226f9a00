// Package kdtree implements a static three dimensional k-d tree. The tree is
// built once over a fixed set of points and is rebuilt from scratch when the
// set changes.
package kdtree

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Tree is an immutable k-d tree over a set of points. Query results refer to
// points by their index in the slice passed to Build.
type Tree struct {
	points []mgl64.Vec3
	// nodes holds point indices laid out as an implicit balanced tree: the
	// median of nodes[lo:hi] sits at (lo+hi)/2 and splits on axis depth%3.
	nodes []int
}

// Build constructs a Tree over points. The slice is retained, so callers must
// not modify it while the tree is in use.
func Build(points []mgl64.Vec3) *Tree {
	t := &Tree{points: points, nodes: make([]int, len(points))}
	for i := range t.nodes {
		t.nodes[i] = i
	}
	t.build(0, len(t.nodes), 0)
	return t
}

func (t *Tree) build(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	axis := depth % 3
	seg := t.nodes[lo:hi]
	slices.SortFunc(seg, func(a, b int) int {
		if c := cmpFloat(t.points[a][axis], t.points[b][axis]); c != 0 {
			return c
		}
		return a - b
	})
	mid := (lo + hi) / 2
	t.build(lo, mid, depth+1)
	t.build(mid+1, hi, depth+1)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Len returns the number of points indexed.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Nearest returns the index of the point closest to q and its distance. ok is
// false if the tree is empty. Ties resolve to the lower index.
func (t *Tree) Nearest(q mgl64.Vec3) (idx int, dist float64, ok bool) {
	if t.Len() == 0 {
		return -1, 0, false
	}
	best, bestSq := -1, math.Inf(1)
	t.nearest(q, 0, len(t.nodes), 0, &best, &bestSq)
	return best, math.Sqrt(bestSq), true
}

func (t *Tree) nearest(q mgl64.Vec3, lo, hi, depth int, best *int, bestSq *float64) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	idx := t.nodes[mid]
	p := t.points[idx]

	d := p.Sub(q).LenSqr()
	if d < *bestSq || (d == *bestSq && idx < *best) {
		*best, *bestSq = idx, d
	}

	axis := depth % 3
	diff := q[axis] - p[axis]
	near, far := [2]int{lo, mid}, [2]int{mid + 1, hi}
	if diff > 0 {
		near, far = far, near
	}
	t.nearest(q, near[0], near[1], depth+1, best, bestSq)
	if diff*diff <= *bestSq {
		t.nearest(q, far[0], far[1], depth+1, best, bestSq)
	}
}

// Radius returns the indices of every point within distance r of q, r
// inclusive, in ascending index order.
func (t *Tree) Radius(q mgl64.Vec3, r float64) []int {
	if t.Len() == 0 || r < 0 {
		return nil
	}
	var out []int
	t.radius(q, r*r, r, 0, len(t.nodes), 0, &out)
	slices.Sort(out)
	return out
}

func (t *Tree) radius(q mgl64.Vec3, rSq, r float64, lo, hi, depth int, out *[]int) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	idx := t.nodes[mid]
	p := t.points[idx]
	if p.Sub(q).LenSqr() <= rSq {
		*out = append(*out, idx)
	}

	axis := depth % 3
	diff := q[axis] - p[axis]
	if diff <= r {
		t.radius(q, rSq, r, lo, mid, depth+1, out)
	}
	if diff >= -r {
		t.radius(q, rSq, r, mid+1, hi, depth+1, out)
	}
}
