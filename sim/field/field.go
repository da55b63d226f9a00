// Package field seeds attraction points over a terrain. Points are spread on
// a jittered grid and thinned according to sunlight, so well lit slopes end up
// with denser and taller point clouds than shaded ones.
package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/dm-vev/canopy/sim/growth"
	"github.com/dm-vev/canopy/sim/terrain"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrTooFewCandidates is returned by Generate if fewer than MinCandidates
// candidates are requested.
var ErrTooFewCandidates = errors.New("too few attraction point candidates")

// MinCandidates is the smallest number of candidates Generate accepts: below
// it the candidate grid has no cells.
const MinCandidates = 4

// Params controls the shape and density of a generated field. Zero values of
// the tuning fields are replaced by defaults.
type Params struct {
	// Candidates is the number of grid cells sampled. It must be at least
	// MinCandidates.
	Candidates int
	// AreaSize is the half-width of the square area covered, centred on the
	// origin.
	AreaSize float64
	// TrunkHeight lifts every point above the ground, so points start around
	// where crowns begin.
	TrunkHeight float64
	// ZMin and ZMax bound the extra height above ground plus trunk height.
	// Poorly lit columns only reach 40% of ZMax.
	ZMin, ZMax float64

	// Contrast is the exponent applied to normalised sunlight. Values above 1
	// concentrate points in bright areas. Defaults to 2.2.
	Contrast float64
	// MinAccept and MaxAccept are the acceptance probabilities of the darkest
	// and brightest cells. Default to 0.05 and 0.95.
	MinAccept, MaxAccept float64
	// Jitter is the largest offset applied to a cell centre, as a fraction of
	// the cell size. Defaults to 0.35.
	Jitter float64
	// KeepRatio caps the number of points returned at KeepRatio × Candidates.
	// Defaults to 0.25.
	KeepRatio float64
}

// DefaultParams returns the parameters of a full size forest run.
func DefaultParams() Params {
	return Params{
		Candidates:  25000,
		AreaSize:    20,
		TrunkHeight: 4,
		ZMin:        0.5,
		ZMax:        10,
	}.withDefaults()
}

func (p Params) withDefaults() Params {
	if p.Contrast <= 0 {
		p.Contrast = 2.2
	}
	if p.MinAccept <= 0 {
		p.MinAccept = 0.05
	}
	if p.MaxAccept <= 0 {
		p.MaxAccept = 0.95
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.35
	}
	if p.KeepRatio <= 0 {
		p.KeepRatio = 0.25
	}
	return p
}

func (p Params) validate() error {
	if p.Candidates < MinCandidates {
		return fmt.Errorf("%w: got %d, need at least %d", ErrTooFewCandidates, p.Candidates, MinCandidates)
	}
	if !(p.AreaSize > 0) || math.IsInf(p.AreaSize, 0) {
		return fmt.Errorf("area size must be positive and finite, got %v", p.AreaSize)
	}
	if p.MinAccept > p.MaxAccept || p.MaxAccept > 1 {
		return fmt.Errorf("invalid acceptance range [%v, %v]", p.MinAccept, p.MaxAccept)
	}
	return nil
}

// Generate returns a sun weighted cloud of unclaimed attraction points over o.
// All randomness is drawn from r, so the same seed, terrain and parameters
// always produce the same points.
func Generate(o terrain.Oracle, sun terrain.Sun, p Params, r *rand.Rand) ([]growth.AttractionPoint, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("generate field: %w", err)
	}

	res := int(math.Sqrt(float64(p.Candidates)))
	cell := 2 * p.AreaSize / float64(res)
	jitter := p.Jitter * cell

	var points []growth.AttractionPoint
	for i := range res {
		for j := range res {
			x := -p.AreaSize + (float64(i)+0.5)*cell + uniform(r, -jitter, jitter)
			y := -p.AreaSize + (float64(j)+0.5)*cell + uniform(r, -jitter, jitter)

			w := sunWeight(o.Sunlight(x, y, sun), p.Contrast)
			if r.Float64() >= p.MinAccept+(p.MaxAccept-p.MinAccept)*w {
				continue
			}
			z := o.Height(x, y) + p.TrunkHeight + uniform(r, p.ZMin, p.ZMax*(0.4+0.6*w))
			points = append(points, growth.AttractionPoint{Position: mgl64.Vec3{x, y, z}})
		}
	}
	return subsample(points, int(p.KeepRatio*float64(p.Candidates)), r), nil
}

// sunWeight maps a sunlight value onto [0, 1] and raises it to the contrast
// exponent.
func sunWeight(light, contrast float64) float64 {
	w := (light - terrain.MinSunlight) / (terrain.MaxSunlight - terrain.MinSunlight)
	return math.Pow(mgl64.Clamp(w, 0, 1), contrast)
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// subsample picks target points uniformly at random without replacement. The
// points kept stay in their original relative order.
func subsample(points []growth.AttractionPoint, target int, r *rand.Rand) []growth.AttractionPoint {
	if len(points) <= target {
		return points
	}
	idx := r.Perm(len(points))[:target]
	slices.Sort(idx)

	out := make([]growth.AttractionPoint, target)
	for k, i := range idx {
		out[k] = points[i]
	}
	return out
}
