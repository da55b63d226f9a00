// Package grid buckets point indices into a sparse uniform 3D grid. It answers
// "which points might be within r of q" without scanning every point, which
// keeps per-node proximity tests cheap when the point set is large.
package grid

import (
	"math"

	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/fasthash/fnv1a"
)

// Grid is a sparse uniform grid of point indices. Cells are addressed by a
// hash of their integer coordinates; hash collisions only merge buckets, so
// callers must still perform an exact distance test on every candidate.
type Grid struct {
	cell    float64
	buckets *intintmap.Map
	members [][]int
	n       int
}

// New returns an empty Grid with cubic cells of the given edge length. A
// non-positive cell size is replaced by 1.
func New(cell float64) *Grid {
	if cell <= 0 || math.IsNaN(cell) || math.IsInf(cell, 0) {
		cell = 1
	}
	return &Grid{cell: cell, buckets: intintmap.New(1024, 0.6)}
}

// CellSize returns the edge length of a grid cell.
func (g *Grid) CellSize() float64 {
	return g.cell
}

// Len returns the number of indices inserted.
func (g *Grid) Len() int {
	return g.n
}

// Insert adds idx to the cell containing p.
func (g *Grid) Insert(idx int, p mgl64.Vec3) {
	cx, cy, cz := g.coords(p)
	key := cellKey(cx, cy, cz)
	b, ok := g.buckets.Get(key)
	if !ok {
		b = int64(len(g.members))
		g.members = append(g.members, nil)
		g.buckets.Put(key, b)
	}
	g.members[b] = append(g.members[b], idx)
	g.n++
}

// Near calls fn for every index stored in a cell that intersects the axis
// aligned box of half-width r around q. Candidates may lie farther than r from
// q. Each index is visited at most once. Iteration stops early if fn returns
// false.
func (g *Grid) Near(q mgl64.Vec3, r float64, fn func(idx int) bool) {
	if g.n == 0 || r < 0 {
		return
	}
	lx, ly, lz := g.coords(q.Sub(mgl64.Vec3{r, r, r}))
	hx, hy, hz := g.coords(q.Add(mgl64.Vec3{r, r, r}))

	seen := make(map[int64]struct{}, 8)
	for x := lx; x <= hx; x++ {
		for y := ly; y <= hy; y++ {
			for z := lz; z <= hz; z++ {
				b, ok := g.buckets.Get(cellKey(x, y, z))
				if !ok {
					continue
				}
				if _, dup := seen[b]; dup {
					continue
				}
				seen[b] = struct{}{}
				for _, idx := range g.members[b] {
					if !fn(idx) {
						return
					}
				}
			}
		}
	}
}

func (g *Grid) coords(p mgl64.Vec3) (x, y, z int64) {
	return int64(math.Floor(p[0] / g.cell)), int64(math.Floor(p[1] / g.cell)), int64(math.Floor(p[2] / g.cell))
}

// cellKey hashes cell coordinates into a map key.
func cellKey(x, y, z int64) int64 {
	h := fnv1a.HashUint64(uint64(x))
	h = fnv1a.AddUint64(h, uint64(y))
	h = fnv1a.AddUint64(h, uint64(z))
	return int64(h)
}
