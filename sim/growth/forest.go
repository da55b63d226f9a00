package growth

import (
	"fmt"
	"log/slog"
	"slices"
)

// ForestConfig holds optional dependencies of a Forest. The zero value is
// usable.
type ForestConfig struct {
	// Log receives debug messages about trees changing phase. If nil, Log is
	// set to slog.Default().
	Log *slog.Logger
	// Metrics, if non-nil, records the outcome of every tick.
	Metrics *Metrics
}

// Forest is a set of trees competing for one attraction point pool. Trees are
// ticked in the order they were added, so when two trees could claim the same
// point during the same tick, the tree added first wins it.
//
// A Forest is not safe for concurrent use.
type Forest struct {
	conf ForestConfig
	pool *Pool

	trees []*Tree
	ids   map[TreeID]int
	// phase caches the last state observed per tree to log transitions.
	phase []State
}

// NewForest creates an empty forest that owns pool.
func NewForest(pool *Pool, conf ForestConfig) (*Forest, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: forest has no attraction point pool", ErrInvalidConfig)
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &Forest{conf: conf, pool: pool, ids: make(map[TreeID]int)}, nil
}

// Pool returns the attraction point pool shared by the forest's trees.
func (f *Forest) Pool() *Pool {
	return f.pool
}

// Plant creates a tree bound to the forest's pool and adds it to the forest.
func (f *Forest) Plant(conf TreeConfig, moisture MoistureField) (*Tree, error) {
	if _, ok := f.ids[conf.ID]; ok {
		return nil, fmt.Errorf("plant tree %d: %w", conf.ID, ErrDuplicateTree)
	}
	t, err := NewTree(conf, f.pool, moisture)
	if err != nil {
		return nil, fmt.Errorf("plant tree %d: %w", conf.ID, err)
	}
	f.register(t)
	return t, nil
}

// Add registers an existing tree with the forest. The tree must grow towards
// the forest's pool and its ID must not already be in use.
func (f *Forest) Add(t *Tree) error {
	if t == nil {
		return fmt.Errorf("%w: cannot add a nil tree", ErrInvalidConfig)
	}
	if t.pool != f.pool {
		return fmt.Errorf("add tree %d: %w", t.ID(), ErrForeignPool)
	}
	if _, ok := f.ids[t.ID()]; ok {
		return fmt.Errorf("add tree %d: %w", t.ID(), ErrDuplicateTree)
	}
	f.register(t)
	return nil
}

func (f *Forest) register(t *Tree) {
	f.ids[t.ID()] = len(f.trees)
	f.trees = append(f.trees, t)
	f.phase = append(f.phase, t.State())
}

// Trees returns the forest's trees in registration order.
func (f *Forest) Trees() []*Tree {
	return slices.Clone(f.trees)
}

// Tree returns the tree with the ID passed.
func (f *Forest) Tree(id TreeID) (*Tree, bool) {
	i, ok := f.ids[id]
	if !ok {
		return nil, false
	}
	return f.trees[i], true
}

// Len returns the number of trees in the forest.
func (f *Forest) Len() int {
	return len(f.trees)
}

// Grow runs stepsPerTick forest ticks. In every tick, each tree is ticked once
// in registration order. The results of the final tick are returned, one per
// tree, in the same order. Values of stepsPerTick below 1 run a single tick.
func (f *Forest) Grow(stepsPerTick int) []TickResult {
	stepsPerTick = max(1, stepsPerTick)
	results := make([]TickResult, len(f.trees))
	for range stepsPerTick {
		for i, t := range f.trees {
			results[i] = t.Grow()
			f.conf.Metrics.Observe(results[i])
			f.observePhase(i, t)
		}
	}
	return results
}

func (f *Forest) observePhase(i int, t *Tree) {
	state := t.State()
	if state == f.phase[i] {
		return
	}
	f.phase[i] = state
	switch state {
	case Branching:
		end, _ := t.TrunkEnd()
		f.conf.Log.Debug("tree trunk complete", "tree", t.ID(), "nodes", t.Len(), "trunkTop", t.Node(end).Position.Z())
	case Exhausted:
		f.conf.Log.Debug("tree reached attraction point quota", "tree", t.ID(), "nodes", t.Len(), "consumed", t.Consumed())
	}
}
