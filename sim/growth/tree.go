package growth

import (
	"fmt"
	"math"
	"slices"

	"github.com/dm-vev/canopy/sim/growth/kdtree"
	"github.com/go-gl/mathgl/mgl64"
)

// NoParent is the parent index of a tree's root node.
const NoParent = -1

// Node is a single point of a tree's skeleton. Nodes are never moved or
// removed once added.
type Node struct {
	Position mgl64.Vec3
	// Parent is the index of the parent node in the owning tree, or NoParent
	// for the root.
	Parent int
}

// Root reports if the node is the root of its tree.
func (n Node) Root() bool {
	return n.Parent == NoParent
}

// Edge connects a node to its parent. Both ends are indices into the owning
// tree's node list.
type Edge struct {
	Parent, Child int
}

// State is the growth phase of a tree.
type State uint8

const (
	// TrunkGrowing trees extend their trunk straight up by one step per tick.
	TrunkGrowing State = iota
	// Branching trees grow towards the attraction points around their crown.
	Branching
	// Exhausted trees have claimed their full quota of attraction points and no
	// longer change.
	Exhausted
)

func (s State) String() string {
	switch s {
	case TrunkGrowing:
		return "trunk"
	case Branching:
		return "branching"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

const (
	minGrowthRadius = 2.0
	maxGrowthRadius = 8.0
	moistureDamping = 0.8

	baseQuota     = 30
	moistureQuota = 200

	// minSpacing is the fraction of the step size that separates any new node
	// from every existing node of the same tree.
	minSpacing = 0.9
	// trunkEps absorbs floating point drift when comparing the trunk top with
	// the target trunk height.
	trunkEps = 1e-9
	// directionEps is the length below which an averaged growth direction is
	// treated as cancelled out.
	directionEps = 1e-12
)

// Tree is the skeleton of a single tree growing towards a shared attraction
// point pool. The zero value is not usable; create trees with NewTree or
// Forest.Plant.
type Tree struct {
	conf TreeConfig
	pool *Pool

	nodes     []Node
	positions []mgl64.Vec3
	edges     []Edge

	trunkDone bool
	trunkEnd  int

	consumed int
	quota    int
	radius   float64

	// index is a k-d tree over positions[:indexed]. It is rebuilt lazily when
	// the node arena has grown since the last build.
	index   *kdtree.Tree
	indexed int
}

// NewTree creates a tree with a single root node at conf.Root. The tree's
// attraction point quota and growth radius are derived from the moisture at the
// root's horizontal position.
func NewTree(conf TreeConfig, pool *Pool, moisture MoistureField) (*Tree, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: tree %d has no attraction point pool", ErrInvalidConfig, conf.ID)
	}
	if moisture == nil {
		return nil, fmt.Errorf("%w: tree %d has no moisture field", ErrInvalidConfig, conf.ID)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("tree %d: %w", conf.ID, err)
	}
	m := moisture.Moisture(conf.Root.X(), conf.Root.Y())
	if math.IsNaN(m) {
		return nil, fmt.Errorf("%w: moisture at tree %d root is NaN", ErrInvalidConfig, conf.ID)
	}

	t := &Tree{
		conf:     conf,
		pool:     pool,
		trunkEnd: NoParent,
		quota:    max(0, int(math.Floor(baseQuota+moistureQuota*m))),
		// The trunk is vertical, so the trunk top shares the root's (x, y) and
		// the growth radius is fixed from the start.
		radius: minGrowthRadius + (maxGrowthRadius-minGrowthRadius)*(m*moistureDamping),
	}
	t.appendNode(conf.Root, NoParent)
	return t, nil
}

// ID returns the identifier of the tree.
func (t *Tree) ID() TreeID {
	return t.conf.ID
}

// Config returns the parameters the tree was created with.
func (t *Tree) Config() TreeConfig {
	return t.conf
}

// Pool returns the attraction point pool the tree grows towards.
func (t *Tree) Pool() *Pool {
	return t.pool
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the i-th node of the tree.
func (t *Tree) Node(i int) Node {
	return t.nodes[i]
}

// Nodes returns a copy of the tree's nodes in insertion order. Index 0 is the
// root.
func (t *Tree) Nodes() []Node {
	return slices.Clone(t.nodes)
}

// Edges returns a copy of the tree's parent-child edges in insertion order.
func (t *Tree) Edges() []Edge {
	return slices.Clone(t.edges)
}

// TrunkDone reports if the trunk has reached its full height.
func (t *Tree) TrunkDone() bool {
	return t.trunkDone
}

// TrunkEnd returns the index of the topmost trunk node. ok is false while the
// trunk is still growing.
func (t *Tree) TrunkEnd() (idx int, ok bool) {
	return t.trunkEnd, t.trunkDone
}

// Consumed returns the number of attraction points claimed by the tree.
func (t *Tree) Consumed() int {
	return t.consumed
}

// MaxAttractionPoints returns the tree's claim quota. Once Consumed reaches
// it, the tree stops growing.
func (t *Tree) MaxAttractionPoints() int {
	return t.quota
}

// GrowthRadius returns the distance from the trunk top within which attraction
// points are considered during branching. Wetter ground gives a wider crown.
func (t *Tree) GrowthRadius() float64 {
	return t.radius
}

// Exhausted reports if the tree has reached its claim quota.
func (t *Tree) Exhausted() bool {
	return t.consumed >= t.quota
}

// State returns the current growth phase of the tree.
func (t *Tree) State() State {
	switch {
	case t.Exhausted():
		return Exhausted
	case !t.trunkDone:
		return TrunkGrowing
	}
	return Branching
}

// Height returns the highest node elevation of the tree.
func (t *Tree) Height() float64 {
	h := math.Inf(-1)
	for _, p := range t.positions {
		h = max(h, p.Z())
	}
	return h
}

func (t *Tree) appendNode(pos mgl64.Vec3, parent int) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{Position: pos, Parent: parent})
	t.positions = append(t.positions, pos)
	if parent != NoParent {
		t.edges = append(t.edges, Edge{Parent: parent, Child: idx})
	}
	return idx
}

// nodeIndex returns a k-d tree over every node currently in the tree.
func (t *Tree) nodeIndex() *kdtree.Tree {
	if t.index == nil || t.indexed != len(t.positions) {
		t.indexed = len(t.positions)
		t.index = kdtree.Build(t.positions[:t.indexed:t.indexed])
	}
	return t.index
}
