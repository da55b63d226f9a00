package sim

import (
	"context"
	"time"

	"github.com/dm-vev/canopy/sim/growth"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// StopReason explains why a run or a single tree stopped growing.
type StopReason uint8

const (
	// StopNone means growth had not stopped when the run ended.
	StopNone StopReason = iota
	// StopQuota means a tree claimed its full attraction point quota.
	StopQuota
	// StopStagnant means a tree went StagnationLimit steps without growing.
	StopStagnant
	// StopSettled means every tree stopped growing.
	StopSettled
	// StopPoolDrained means no unclaimed attraction points were left.
	StopPoolDrained
	// StopStepLimit means the run reached MaxSteps.
	StopStepLimit
	// StopCancelled means the run's context was cancelled.
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopQuota:
		return "quota"
	case StopStagnant:
		return "stagnant"
	case StopSettled:
		return "settled"
	case StopPoolDrained:
		return "pool drained"
	case StopStepLimit:
		return "step limit"
	case StopCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result summarises a finished run.
type Result struct {
	// ID uniquely identifies the run. IDs of later runs sort after earlier ones.
	ID   uuid.UUID
	Seed uint64
	// Started is the wall clock time Run was called at.
	Started time.Time
	// Duration is the wall clock time spent growing.
	Duration time.Duration
	// Steps is the number of simulation steps run.
	Steps int
	// Stop is the reason the run ended.
	Stop StopReason
	// Points and FreePoints are the pool size and the number of points left
	// unclaimed at the end of the run.
	Points, FreePoints int
	Trees              []TreeSummary
}

// TreeSummary describes a single tree at the end of a run.
type TreeSummary struct {
	ID          growth.TreeID
	Root        mgl64.Vec3
	TrunkHeight float64
	// Height is the height of the tree's highest node above its root.
	Height   float64
	Nodes    int
	Consumed int
	Quota    int
	// GrowthRadius is the radius around the trunk top that attraction points
	// had to fall within to be grown towards.
	GrowthRadius float64
	// PointsInRadius is the number of pool points, claimed or not, within the
	// growth radius of the trunk top. It is 0 if the trunk never completed.
	PointsInRadius int
	// Neighbours is the number of other trees whose trunk tops lie within the
	// configured neighbour radius of this tree's trunk top.
	Neighbours int
	Stop       StopReason
}

// Simulation grows a forest step by step. It is created using Config.New and
// is not safe for concurrent use.
type Simulation struct {
	conf   Config
	forest *growth.Forest

	// Per tree, indexed like forest.Trees().
	lastLen []int
	stalled []int
	stop    []StopReason
	active  int

	steps int
}

func newSimulation(conf Config, forest *growth.Forest) *Simulation {
	n := forest.Len()
	s := &Simulation{
		conf:    conf,
		forest:  forest,
		lastLen: make([]int, n),
		stalled: make([]int, n),
		stop:    make([]StopReason, n),
		active:  n,
	}
	for i, t := range forest.Trees() {
		s.lastLen[i] = t.Len()
	}
	return s
}

// Forest returns the forest grown by the simulation.
func (s *Simulation) Forest() *growth.Forest {
	return s.forest
}

// Steps returns the number of steps run so far.
func (s *Simulation) Steps() int {
	return s.steps
}

// Step advances the forest by one simulation step and updates which trees are
// still growing.
func (s *Simulation) Step() {
	s.forest.Grow(s.conf.StepsPerTick)
	s.steps++

	for i, t := range s.forest.Trees() {
		if s.stop[i] != StopNone {
			continue
		}
		switch {
		case t.Exhausted():
			s.deactivate(i, t, StopQuota)
		case t.Len() != s.lastLen[i]:
			s.lastLen[i] = t.Len()
			s.stalled[i] = 0
		default:
			s.stalled[i]++
			if s.stalled[i] > s.conf.StagnationLimit {
				s.deactivate(i, t, StopStagnant)
			}
		}
	}
}

func (s *Simulation) deactivate(i int, t *growth.Tree, reason StopReason) {
	s.stop[i] = reason
	s.active--
	s.conf.Log.Debug("tree stopped growing", "tree", t.ID(), "reason", reason, "step", s.steps, "nodes", t.Len(), "consumed", t.Consumed())
}

// Run steps the simulation until every tree has stopped growing, the pool has
// no unclaimed points left, MaxSteps is reached or ctx is cancelled. When ctx
// is cancelled, the summary of the forest grown so far is returned along with
// ctx.Err().
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	res := Result{ID: newRunID(), Seed: s.conf.Seed, Started: time.Now()}
	pool := s.forest.Pool()
	s.conf.Log.Info("growing forest", "run", res.ID, "seed", s.conf.Seed, "trees", s.forest.Len(), "points", pool.Len())

	var err error
	for res.Stop == StopNone {
		switch {
		case ctx.Err() != nil:
			err, res.Stop = ctx.Err(), StopCancelled
			continue
		case s.steps >= s.conf.MaxSteps:
			res.Stop = StopStepLimit
			continue
		}
		s.Step()
		if s.steps%100 == 0 {
			s.conf.Log.Debug("forest progress", "run", res.ID, "step", s.steps, "active", s.active, "free", pool.Unclaimed())
		}
		switch {
		case s.active == 0:
			res.Stop = StopSettled
		case pool.Unclaimed() == 0:
			res.Stop = StopPoolDrained
		}
	}

	res.Duration = time.Since(res.Started)
	res.Steps = s.steps
	res.Points, res.FreePoints = pool.Len(), pool.Unclaimed()
	res.Trees = s.Summaries()
	s.conf.Log.Info("forest grown", "run", res.ID, "steps", res.Steps, "reason", res.Stop, "free", res.FreePoints, "duration", res.Duration)
	return res, err
}

// Summaries describes every tree in the forest in its current state.
func (s *Simulation) Summaries() []TreeSummary {
	trees := s.forest.Trees()
	pool := s.forest.Pool()

	tops := make([]mgl64.Vec3, len(trees))
	done := make([]bool, len(trees))
	for i, t := range trees {
		if end, ok := t.TrunkEnd(); ok {
			tops[i], done[i] = t.Node(end).Position, true
		}
	}

	out := make([]TreeSummary, len(trees))
	for i, t := range trees {
		conf := t.Config()
		sum := TreeSummary{
			ID:           t.ID(),
			Root:         conf.Root,
			TrunkHeight:  conf.TrunkHeight,
			Height:       t.Height() - conf.Root.Z(),
			Nodes:        t.Len(),
			Consumed:     t.Consumed(),
			Quota:        t.MaxAttractionPoints(),
			GrowthRadius: t.GrowthRadius(),
			Stop:         s.stop[i],
		}
		if done[i] {
			sum.PointsInRadius = len(pool.Within(tops[i], t.GrowthRadius()))
			for j := range trees {
				if j != i && done[j] && tops[i].Sub(tops[j]).Len() <= s.conf.NeighbourRadius {
					sum.Neighbours++
				}
			}
		}
		out[i] = sum
	}
	return out
}

func newRunID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}
