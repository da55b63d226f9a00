package growth

import (
	"github.com/dm-vev/canopy/sim/growth/grid"
	"github.com/dm-vev/canopy/sim/growth/kdtree"
	"github.com/go-gl/mathgl/mgl64"
)

// TreeID identifies a tree within a forest. It is the value recorded in the
// owner field of attraction points claimed by the tree.
type TreeID int

// AttractionPoint is a target in space that trees grow towards. Its position
// never changes. Once claimed by a tree, it stays claimed by that tree.
type AttractionPoint struct {
	Position mgl64.Vec3
	// Owner is the tree that claimed the point. It is only meaningful if
	// Claimed is true.
	Owner   TreeID
	Claimed bool
}

// ClaimedBy returns the tree that claimed the point, if any.
func (p AttractionPoint) ClaimedBy() (TreeID, bool) {
	return p.Owner, p.Claimed
}

// minClaimCell bounds the edge length of claim grid cells from below, so tiny
// kill radii do not push cell coordinates out of range.
const minClaimCell = 1e-3

// Pool is the set of attraction points shared by every tree in a forest. It
// stores positions in an index arena with a parallel owner column, so trees
// refer to points by index and only this package can write claims.
type Pool struct {
	positions []mgl64.Vec3
	owner     []TreeID
	claimed   []bool
	free      int

	index *kdtree.Tree
	// cells holds one claim grid per cell size in use, built on first use.
	cells map[float64]*grid.Grid
}

// NewPool creates a Pool holding a copy of points. Points that are already
// claimed keep their owner.
func NewPool(points []AttractionPoint) *Pool {
	p := &Pool{
		positions: make([]mgl64.Vec3, len(points)),
		owner:     make([]TreeID, len(points)),
		claimed:   make([]bool, len(points)),
		cells:     make(map[float64]*grid.Grid),
	}
	for i, pt := range points {
		p.positions[i] = pt.Position
		if pt.Claimed {
			p.owner[i], p.claimed[i] = pt.Owner, true
		} else {
			p.free++
		}
	}
	p.index = kdtree.Build(p.positions)
	return p
}

// Len returns the number of points in the pool, claimed or not.
func (p *Pool) Len() int {
	return len(p.positions)
}

// Unclaimed returns the number of points not yet claimed by any tree.
func (p *Pool) Unclaimed() int {
	return p.free
}

// Point returns the i-th point of the pool.
func (p *Pool) Point(i int) AttractionPoint {
	return AttractionPoint{Position: p.positions[i], Owner: p.owner[i], Claimed: p.claimed[i]}
}

// Points returns a snapshot of every point in the pool.
func (p *Pool) Points() []AttractionPoint {
	out := make([]AttractionPoint, len(p.positions))
	for i := range out {
		out[i] = p.Point(i)
	}
	return out
}

// ClaimedCount returns the number of points claimed by the tree passed.
func (p *Pool) ClaimedCount(id TreeID) int {
	n := 0
	for i, ok := range p.claimed {
		if ok && p.owner[i] == id {
			n++
		}
	}
	return n
}

// Within returns the indices of the points within r of q, r inclusive, in
// ascending order, regardless of their claim state.
func (p *Pool) Within(q mgl64.Vec3, r float64) []int {
	return p.index.Radius(q, r)
}

// claimGrid returns a grid over every point in the pool with cells as wide as
// the kill radius passed, so a claim query never spans more than three cells
// per axis.
func (p *Pool) claimGrid(kill float64) *grid.Grid {
	cell := max(kill, minClaimCell)
	g, ok := p.cells[cell]
	if !ok {
		g = grid.New(cell)
		for i, pos := range p.positions {
			g.Insert(i, pos)
		}
		p.cells[cell] = g
	}
	return g
}

// visibleTo reports if the point at i is free, or claimed by id. Points claimed
// by other trees are invisible to id.
func (p *Pool) visibleTo(i int, id TreeID) bool {
	return !p.claimed[i] || p.owner[i] == id
}

// claim assigns the point at i to id. It returns false and leaves the point
// untouched if it was already claimed.
func (p *Pool) claim(i int, id TreeID) bool {
	if p.claimed[i] {
		return false
	}
	p.owner[i], p.claimed[i] = id, true
	p.free--
	return true
}
