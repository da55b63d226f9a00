package growth

import (
	"sync"
)

// TreeStats is a snapshot of the counters tracked for one tree.
type TreeStats struct {
	Ticks   uint64
	Added   uint64
	Claimed uint64
	Idle    uint64
}

// Metrics tracks per-tree growth counters. A nil *Metrics is valid and
// records nothing. Reads may happen from other goroutines while a forest is
// growing.
type Metrics struct {
	mu    sync.Mutex
	trees map[TreeID]*TreeStats
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{trees: make(map[TreeID]*TreeStats)}
}

// Observe records the outcome of a single tick.
func (m *Metrics) Observe(res TickResult) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.trees[res.Tree]
	if !ok {
		s = &TreeStats{}
		m.trees[res.Tree] = s
	}
	s.Ticks++
	s.Added += uint64(res.Added)
	s.Claimed += uint64(res.Claimed)
	if res.Idle() {
		s.Idle++
	}
}

// Snapshot returns the counters recorded for the tree passed.
func (m *Metrics) Snapshot(id TreeID) TreeStats {
	if m == nil {
		return TreeStats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.trees[id]; ok {
		return *s
	}
	return TreeStats{}
}

// Total sums the counters of every tree.
func (m *Metrics) Total() TreeStats {
	var total TreeStats
	if m == nil {
		return total
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.trees {
		total.Ticks += s.Ticks
		total.Added += s.Added
		total.Claimed += s.Claimed
		total.Idle += s.Idle
	}
	return total
}
