// Package terrain provides the height, moisture and sunlight fields that trees
// grow over. All queries are pure: the same coordinates always produce the same
// values, and no query mutates the terrain.
package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MinMoisture and MaxMoisture bound the values returned by Moisture.
	MinMoisture, MaxMoisture = 0.05, 1.0
	// MinSunlight and MaxSunlight bound the values returned by Sunlight.
	MinSunlight, MaxSunlight = 0.05, 1.0
)

// Oracle is a scalar field sampled by the simulation. Implementations must be
// deterministic and free of side effects.
type Oracle interface {
	// Height returns the ground elevation at (x, y).
	Height(x, y float64) float64
	// Slope returns the magnitude of the height gradient at (x, y).
	Slope(x, y float64) float64
	// Moisture returns the soil wetness at (x, y) in [MinMoisture, MaxMoisture].
	Moisture(x, y float64) float64
	// Sunlight returns the incident light at (x, y) for the sun passed, in
	// [MinSunlight, MaxSunlight].
	Sunlight(x, y float64, sun Sun) float64
}

// Sun is a point light source. Only the direction from a surface point towards
// the sun is ever used.
type Sun struct {
	Position mgl64.Vec3
}

// DirectionTo returns the unit vector pointing from p towards the sun. If p is
// (almost) at the sun's position, straight up is returned.
func (s Sun) DirectionTo(p mgl64.Vec3) mgl64.Vec3 {
	v := s.Position.Sub(p)
	n := v.Len()
	if n < 1e-6 {
		return mgl64.Vec3{0, 0, 1}
	}
	return v.Mul(1 / n)
}

// Procedural is a smooth rolling terrain built from a few sine waves. Moisture
// drops with altitude and steepness, so valleys are wet and ridges dry.
type Procedural struct {
	// Scale is the horizontal wavelength divisor. Larger values give broader hills.
	Scale float64
	// HeightAmp is the vertical amplitude of the terrain.
	HeightAmp float64
}

// NewProcedural returns a Procedural terrain, substituting defaults for
// non-positive parameters.
func NewProcedural(scale, amp float64) Procedural {
	if scale <= 0 {
		scale = 10
	}
	if amp <= 0 {
		amp = 2.5
	}
	return Procedural{Scale: scale, HeightAmp: amp}
}

const gradientEps = 0.1

// Height returns the ground elevation at (x, y), a sum of sine waves scaled by
// HeightAmp.
func (p Procedural) Height(x, y float64) float64 {
	return (math.Sin(x/p.Scale)*math.Cos(y/p.Scale) + 0.5*math.Sin(2*x/p.Scale)) * p.HeightAmp
}

func (p Procedural) gradient(x, y float64) (dx, dy float64) {
	dx = (p.Height(x+gradientEps, y) - p.Height(x-gradientEps, y)) / (2 * gradientEps)
	dy = (p.Height(x, y+gradientEps) - p.Height(x, y-gradientEps)) / (2 * gradientEps)
	return dx, dy
}

// Slope returns the magnitude of the height gradient at (x, y), estimated with
// central differences.
func (p Procedural) Slope(x, y float64) float64 {
	dx, dy := p.gradient(x, y)
	return math.Hypot(dx, dy)
}

// Moisture returns the soil wetness at (x, y). High and steep ground is dry,
// low and level ground is wet. The result lies in [MinMoisture, MaxMoisture].
func (p Procedural) Moisture(x, y float64) float64 {
	hNorm := mgl64.Clamp((p.Height(x, y)+p.HeightAmp)/(2*p.HeightAmp), 0, 1)
	hDry := math.Pow(hNorm, 1.7)
	sDry := mgl64.Clamp(p.Slope(x, y)/1.2, 0, 1)

	return mgl64.Clamp(1-(0.5*hDry+0.7*sDry), MinMoisture, MaxMoisture)
}

// Sunlight returns the cosine between the surface normal and the direction to
// the sun, clamped to [MinSunlight, MaxSunlight].
func (p Procedural) Sunlight(x, y float64, sun Sun) float64 {
	dx, dy := p.gradient(x, y)
	normal := mgl64.Vec3{-dx, -dy, 1}
	normal = normal.Mul(1 / (normal.Len() + 1e-6))

	light := sun.DirectionTo(mgl64.Vec3{x, y, p.Height(x, y)})
	return mgl64.Clamp(normal.Dot(light), MinSunlight, MaxSunlight)
}

// Flat is a level plane with uniform moisture and light. It is mostly useful
// for tests and for isolating growth behaviour from terrain effects.
type Flat struct {
	Z       float64
	Wetness float64
	Light   float64
}

func (f Flat) Height(float64, float64) float64 { return f.Z }

func (f Flat) Slope(float64, float64) float64 { return 0 }

func (f Flat) Moisture(float64, float64) float64 { return f.Wetness }

func (f Flat) Sunlight(float64, float64, Sun) float64 { return f.Light }

var (
	_ Oracle = Procedural{}
	_ Oracle = Flat{}
)
