package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/dm-vev/canopy/sim/field"
	"github.com/dm-vev/canopy/sim/growth"
	"github.com/dm-vev/canopy/sim/terrain"
	"github.com/go-gl/mathgl/mgl64"
)

// Config contains the options of a single forest simulation run.
type Config struct {
	// Log is the Logger used for run progress. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Seed seeds every random decision of the run. Runs with equal configs and
	// seeds grow identical forests.
	Seed uint64
	// Terrain supplies height, moisture and sunlight. If nil, a procedural
	// terrain with scale 8 and amplitude 2 is used.
	Terrain terrain.Oracle
	// Sun lights the terrain. A zero position is replaced by (30, 0, 30).
	Sun terrain.Sun
	// Field controls attraction point generation. Zero Candidates, AreaSize and
	// TrunkHeight fields take their value from field.DefaultParams, as do ZMin
	// and ZMax when both are 0. Fields set by the caller are kept.
	Field field.Params
	// Placement controls where trees are rooted.
	Placement Placement
	// InfluenceRadius, KillRadius and StepSize are shared by every tree. A zero
	// value is replaced by 3, 1 and 0.5 respectively, so a run cannot disable
	// claiming with a zero KillRadius. Negative values are passed on and
	// rejected by growth.NewTree.
	InfluenceRadius, KillRadius, StepSize float64
	// StepsPerTick is the number of forest ticks run per simulation step.
	// Defaults to 1.
	StepsPerTick int
	// MaxSteps stops the run after this many steps. Defaults to 3000.
	MaxSteps int
	// StagnationLimit marks a tree inactive once it has gone this many
	// consecutive steps without adding a node. Defaults to 500.
	StagnationLimit int
	// NeighbourRadius is the distance between trunk tops within which two trees
	// count as neighbours in the run summary. Defaults to 8.
	NeighbourRadius float64
	// Metrics, if non-nil, records per-tree tick counters.
	Metrics *growth.Metrics
}

// Placement describes a square grid of tree roots.
type Placement struct {
	// Count is the number of trees. Defaults to 1.
	Count int
	// Spacing is the distance between neighbouring roots. Defaults to 1.5.
	Spacing float64
	// Offset shifts the whole grid, which is otherwise centred on the origin.
	Offset mgl64.Vec2
	// TrunkHeights are assigned to trees in order, cycling when there are more
	// trees than heights. Defaults to a single height of 4.
	TrunkHeights []float64
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Terrain == nil {
		conf.Terrain = terrain.NewProcedural(8, 2)
	}
	if conf.Sun.Position == (mgl64.Vec3{}) {
		conf.Sun.Position = mgl64.Vec3{30, 0, 30}
	}
	conf.Field = fieldWithDefaults(conf.Field)
	if conf.Placement.Count <= 0 {
		conf.Placement.Count = 1
	}
	if conf.Placement.Spacing <= 0 {
		conf.Placement.Spacing = 1.5
	}
	if len(conf.Placement.TrunkHeights) == 0 {
		conf.Placement.TrunkHeights = []float64{4}
	}
	if conf.InfluenceRadius == 0 {
		conf.InfluenceRadius = 3
	}
	if conf.KillRadius == 0 {
		conf.KillRadius = 1
	}
	if conf.StepSize == 0 {
		conf.StepSize = 0.5
	}
	if conf.StepsPerTick <= 0 {
		conf.StepsPerTick = 1
	}
	if conf.MaxSteps <= 0 {
		conf.MaxSteps = 3000
	}
	if conf.StagnationLimit <= 0 {
		conf.StagnationLimit = 500
	}
	if conf.NeighbourRadius <= 0 {
		conf.NeighbourRadius = 8
	}
	return conf
}

func fieldWithDefaults(p field.Params) field.Params {
	def := field.DefaultParams()
	if p.Candidates == 0 {
		p.Candidates = def.Candidates
	}
	if p.AreaSize == 0 {
		p.AreaSize = def.AreaSize
	}
	if p.TrunkHeight == 0 {
		p.TrunkHeight = def.TrunkHeight
	}
	if p.ZMin == 0 && p.ZMax == 0 {
		p.ZMin, p.ZMax = def.ZMin, def.ZMax
	}
	return p
}

// New generates the attraction point field and plants the forest described by
// conf. The returned Simulation is ready to Run.
func (conf Config) New() (*Simulation, error) {
	conf = conf.withDefaults()

	r := rand.New(rand.NewPCG(conf.Seed, conf.Seed^seedMix))
	points, err := field.Generate(conf.Terrain, conf.Sun, conf.Field, r)
	if err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	pool := growth.NewPool(points)
	forest, err := growth.NewForest(pool, growth.ForestConfig{Log: conf.Log, Metrics: conf.Metrics})
	if err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}

	roots := GridPositions(conf.Placement.Count, conf.Placement.Spacing)
	for i, xy := range roots {
		xy = xy.Add(conf.Placement.Offset)
		tc := growth.TreeConfig{
			ID:              growth.TreeID(i),
			Root:            mgl64.Vec3{xy.X(), xy.Y(), conf.Terrain.Height(xy.X(), xy.Y())},
			InfluenceRadius: conf.InfluenceRadius,
			KillRadius:      conf.KillRadius,
			StepSize:        conf.StepSize,
			TrunkHeight:     conf.Placement.TrunkHeights[i%len(conf.Placement.TrunkHeights)],
		}
		if _, err := forest.Plant(tc, conf.Terrain); err != nil {
			return nil, fmt.Errorf("new simulation: %w", err)
		}
	}
	return newSimulation(conf, forest), nil
}

// seedMix decorrelates the two PCG seed words derived from a single seed.
const seedMix = 0x9e3779b97f4a7c15

// GridPositions returns count positions on the smallest square grid that holds
// them, spaced spacing apart and centred on the origin. Positions are filled
// column by column.
func GridPositions(count int, spacing float64) []mgl64.Vec2 {
	if count <= 0 {
		return nil
	}
	size := 1
	for size*size < count {
		size++
	}
	half := float64(size-1) * spacing / 2

	out := make([]mgl64.Vec2, 0, count)
	for i := 0; i < size && len(out) < count; i++ {
		for j := 0; j < size && len(out) < count; j++ {
			out = append(out, mgl64.Vec2{float64(i)*spacing - half, float64(j)*spacing - half})
		}
	}
	return out
}
