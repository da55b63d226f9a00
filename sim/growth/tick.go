package growth

import (
	"slices"

	"github.com/dm-vev/canopy/sim/growth/kdtree"
	"github.com/go-gl/mathgl/mgl64"
)

// SkipReason explains why a growth tick left a tree unchanged.
type SkipReason uint8

const (
	// SkipNone means the tick ran to completion. It may still have added no
	// nodes; see TickResult.Idle.
	SkipNone SkipReason = iota
	// SkipQuota means the tree has already claimed its full quota.
	SkipQuota
	// SkipEmptyPool means the attraction point pool holds no points at all.
	SkipEmptyPool
	// SkipOutOfRange means no visible attraction point lies within the tree's
	// growth radius.
	SkipOutOfRange
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipQuota:
		return "quota"
	case SkipEmptyPool:
		return "empty pool"
	case SkipOutOfRange:
		return "out of range"
	}
	return "unknown"
}

// TickResult describes the effect of a single growth tick on one tree.
type TickResult struct {
	// Tree is the tree that was ticked.
	Tree TreeID
	// Phase is the state the tree was in when the tick started.
	Phase State
	// Added is the number of nodes appended during the tick.
	Added int
	// Claimed is the number of attraction points claimed during the tick.
	Claimed int
	// Skipped is set if the tick short-circuited without doing any work.
	Skipped SkipReason
}

// Idle reports if the tick changed neither the tree nor the pool.
func (r TickResult) Idle() bool {
	return r.Added == 0 && r.Claimed == 0
}

// Grow performs a single growth tick. While the trunk is growing, one node is
// added straight above the previous trunk node. Afterwards, each tick grows
// nodes towards the visible attraction points around the crown and claims the
// points that any node of the tree has come close enough to.
//
// A tick that finds nothing to do is a no-op. Grow never fails.
func (t *Tree) Grow() TickResult {
	res := TickResult{Tree: t.conf.ID, Phase: t.State()}
	if t.Exhausted() {
		res.Skipped = SkipQuota
		return res
	}
	if !t.trunkDone {
		t.growTrunk()
		res.Added = 1
		return res
	}
	if t.pool.Len() == 0 {
		res.Skipped = SkipEmptyPool
		return res
	}

	candidates := t.candidates()
	if len(candidates) == 0 {
		res.Skipped = SkipOutOfRange
		return res
	}
	res.Added = t.branch(candidates)
	res.Claimed = t.claim()
	return res
}

func (t *Tree) growTrunk() {
	last := len(t.nodes) - 1
	pos := t.positions[last].Add(mgl64.Vec3{0, 0, t.conf.StepSize})
	idx := t.appendNode(pos, last)

	if pos.Z() >= t.conf.Root.Z()+t.conf.TrunkHeight-trunkEps {
		t.trunkDone, t.trunkEnd = true, idx
	}
}

// candidates returns the pool indices of the points within the growth radius of
// the trunk top that are free or already claimed by this tree.
func (t *Tree) candidates() []int {
	top := t.positions[t.trunkEnd]
	within := t.pool.Within(top, t.radius)
	return slices.DeleteFunc(within, func(i int) bool {
		return !t.pool.visibleTo(i, t.conf.ID)
	})
}

// pull accumulates the unit directions from a node towards the points that
// have it as their nearest node.
type pull struct {
	sum mgl64.Vec3
	n   int
}

// branch grows new nodes towards the candidate points and returns the number
// of nodes added.
func (t *Tree) branch(candidates []int) int {
	index := t.nodeIndex()

	pulls := make(map[int]*pull)
	for _, i := range candidates {
		target := t.pool.positions[i]
		nearest, dist, ok := index.Nearest(target)
		if !ok || dist >= t.conf.InfluenceRadius {
			continue
		}
		dir := target.Sub(t.positions[nearest])
		n := dir.Len()
		if n == 0 {
			continue
		}
		p, ok := pulls[nearest]
		if !ok {
			p = &pull{}
			pulls[nearest] = p
		}
		p.sum = p.sum.Add(dir.Mul(1 / n))
		p.n++
	}
	if len(pulls) == 0 {
		return 0
	}

	parents := make([]int, 0, len(pulls))
	for idx := range pulls {
		parents = append(parents, idx)
	}
	slices.Sort(parents)

	minDist := t.conf.StepSize * minSpacing
	added := make([]mgl64.Vec3, 0, len(parents))
	for _, parent := range parents {
		p := pulls[parent]
		avg := p.sum.Mul(1 / float64(p.n))
		l := avg.Len()
		if l < directionEps {
			continue
		}
		pos := t.positions[parent].Add(avg.Mul(t.conf.StepSize / l))
		if !t.spaced(index, added, pos, minDist) {
			continue
		}
		t.appendNode(pos, parent)
		added = append(added, pos)
	}
	return len(added)
}

// spaced reports if pos is farther than minDist from every node of the tree:
// the nodes indexed before this tick and the ones added during it.
func (t *Tree) spaced(index *kdtree.Tree, added []mgl64.Vec3, pos mgl64.Vec3, minDist float64) bool {
	if _, d, ok := index.Nearest(pos); ok && d <= minDist {
		return false
	}
	for _, a := range added {
		if a.Sub(pos).Len() <= minDist {
			return false
		}
	}
	return true
}

// claim assigns every free point that lies within the kill radius of any node
// of the tree to the tree, in pool order, until the quota is reached. It
// returns the number of points claimed.
func (t *Tree) claim() int {
	if t.pool.Unclaimed() == 0 || t.conf.KillRadius <= 0 {
		return 0
	}
	kill := t.conf.KillRadius
	cells := t.pool.claimGrid(kill)
	hits := make(map[int]struct{})
	for _, node := range t.positions {
		cells.Near(node, kill, func(i int) bool {
			if !t.pool.claimed[i] && t.pool.positions[i].Sub(node).Len() < kill {
				hits[i] = struct{}{}
			}
			return true
		})
	}
	if len(hits) == 0 {
		return 0
	}

	order := make([]int, 0, len(hits))
	for i := range hits {
		order = append(order, i)
	}
	slices.Sort(order)

	claimed := 0
	for _, i := range order {
		if t.Exhausted() {
			break
		}
		if t.pool.claim(i, t.conf.ID) {
			t.consumed++
			claimed++
		}
	}
	return claimed
}
