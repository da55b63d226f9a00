package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidConfig is returned when a tree or forest is constructed with
	// parameters that would break the growth invariants, such as a non-positive
	// step size.
	ErrInvalidConfig = errors.New("invalid growth configuration")
	// ErrDuplicateTree is returned when a tree is added to a forest that already
	// holds a tree with the same ID.
	ErrDuplicateTree = errors.New("tree id already registered")
	// ErrForeignPool is returned when a tree bound to one attraction point pool
	// is added to a forest that owns a different pool.
	ErrForeignPool = errors.New("tree uses a different attraction point pool")
)

// MoistureField reports soil moisture at a horizontal position. terrain.Oracle
// satisfies it.
type MoistureField interface {
	Moisture(x, y float64) float64
}

// TreeConfig holds the construction-time parameters of a single tree.
type TreeConfig struct {
	// ID is recorded on every attraction point the tree claims. IDs must be
	// unique within a forest.
	ID TreeID
	// Root is the position of the root node. The trunk grows straight up from
	// it.
	Root mgl64.Vec3
	// InfluenceRadius is the largest node-to-point distance at which a point
	// pulls on its nearest node.
	InfluenceRadius float64
	// KillRadius is the distance below which a point is claimed by the tree.
	KillRadius float64
	// StepSize is the length of each new segment.
	StepSize float64
	// TrunkHeight is the height above Root at which the trunk stops and
	// branching starts.
	TrunkHeight float64
}

// DefaultTreeConfig returns the parameters of a typical forest tree,
// rooted at root.
func DefaultTreeConfig(id TreeID, root mgl64.Vec3) TreeConfig {
	return TreeConfig{
		ID:              id,
		Root:            root,
		InfluenceRadius: 3,
		KillRadius:      1,
		StepSize:        0.5,
		TrunkHeight:     4,
	}
}

func (c TreeConfig) validate() error {
	for i, v := range c.Root {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: root coordinate %d is %v", ErrInvalidConfig, i, v)
		}
	}
	if !(c.StepSize > 0) || math.IsInf(c.StepSize, 0) {
		return fmt.Errorf("%w: step size must be positive, got %v", ErrInvalidConfig, c.StepSize)
	}
	if !(c.TrunkHeight > 0) || math.IsInf(c.TrunkHeight, 0) {
		return fmt.Errorf("%w: trunk height must be positive, got %v", ErrInvalidConfig, c.TrunkHeight)
	}
	if !(c.InfluenceRadius >= 0) || math.IsInf(c.InfluenceRadius, 0) {
		return fmt.Errorf("%w: influence radius must not be negative, got %v", ErrInvalidConfig, c.InfluenceRadius)
	}
	if !(c.KillRadius >= 0) || math.IsInf(c.KillRadius, 0) {
		return fmt.Errorf("%w: kill radius must not be negative, got %v", ErrInvalidConfig, c.KillRadius)
	}
	return nil
}
